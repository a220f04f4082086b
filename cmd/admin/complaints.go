package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barangay/backend/internal/analysis"
	"barangay/backend/internal/auth"
	"barangay/backend/internal/models"
	"barangay/backend/internal/storage"
	"barangay/backend/internal/triage"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newReanalyzeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reanalyze <complaint-id>",
		Short: "Discard a complaint's AI analysis and run it again",
		Args:  cobra.ExactArgs(1),
		RunE: withDeps(func(ctx context.Context, d *deps, args []string) error {
			if d.cfg.GeminiAPIKey == "" {
				return errors.New("GEMINI_API_KEY is not set")
			}
			client, err := analysis.NewGeminiClient(ctx, d.cfg.GeminiAPIKey, d.cfg.GeminiModel, d.cfg.AnalysisTimeout, d.logger)
			if err != nil {
				return fmt.Errorf("creating Gemini client: %w", err)
			}

			pipeline := triage.NewPipeline(d.store, client, d.audit, d.logger, nil, triage.Options{AnalysisTimeout: d.cfg.AnalysisTimeout})
			if err := pipeline.Reanalyze(ctx, auth.NewSession(cliUser()), args[0]); err != nil {
				return err
			}
			pipeline.Wait()

			c, err := d.store.GetComplaint(ctx, args[0])
			if err != nil {
				return err
			}
			if c.AIAnalysis == nil {
				fmt.Println("Analysis failed; the complaint is left unanalyzed.")
				return nil
			}
			fmt.Printf("Priority %d (%s), confidence %d%%\n  %s\n", c.AIAnalysis.PriorityScore, c.AIAnalysis.UrgencyLevel,
				c.AIAnalysis.ConfidenceScore, c.AIAnalysis.SuggestedAction)
			return nil
		}),
	}
}

func newSeedDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Load three sample complaints for demos",
		Long:  "Load three sample complaints. Running it again skips the ones already present.",
		Args:  cobra.NoArgs,
		RunE: withDeps(func(ctx context.Context, d *deps, _ []string) error {
			created := 0
			for _, c := range demoComplaints(time.Now().UTC()) {
				if _, err := d.store.GetComplaint(ctx, c.ID); err == nil {
					continue
				} else if !errors.Is(err, storage.ErrNotFound) {
					return err
				}
				if err := d.store.CreateComplaint(ctx, &c); err != nil {
					return fmt.Errorf("seeding %q: %w", c.Title, err)
				}
				d.audit.RecordComplaint(ctx, c.ID, models.ActionComplaintCreated, cliActor, "Demo complaint seeded")
				created++
			}
			fmt.Printf("Seeded %d demo complaints.\n", created)
			return nil
		}),
	}
}

func demoID(n int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("barangay-demo-%d", n))).String()
}

func demoComplaints(now time.Time) []models.Complaint {
	return []models.Complaint{
		{
			ID:          demoID(1),
			Title:       "Clogged Drainage Causing Flooding",
			Description: "The main drainage canal in Purok 2 is blocked by debris. Water is entering houses during light rain.",
			Location:    "Purok 2, Maysan Rd.",
			Category:    "Infrastructure",
			SubmittedBy: "Maria Clara (Resident)",
			SubmittedAt: now.Add(-24 * time.Hour),
			Status:      models.StatusPending,
			AIAnalysis: &models.AIAnalysis{
				PriorityScore:              92,
				UrgencyLevel:               models.UrgencyCritical,
				ImpactAnalysis:             "High risk of property damage and waterborne diseases (leptospirosis) due to flooding in residential area.",
				SuggestedAction:            "Deploy engineering team immediately for declogging. Alert residents.",
				EstimatedResourceIntensity: models.ResourceMedium,
				ConfidenceScore:            95,
			},
		},
		{
			ID:          demoID(2),
			Title:       "Late Night Videoke Noise",
			Description: "Neighbors singing loudly past 1 AM. Cannot sleep.",
			Location:    "Sitio Gitna",
			Category:    "Peace and Order",
			SubmittedBy: "Jose Rizal (Resident)",
			SubmittedAt: now.Add(-time.Hour),
			Status:      models.StatusPending,
			AIAnalysis: &models.AIAnalysis{
				PriorityScore:              65,
				UrgencyLevel:               models.UrgencyMedium,
				ImpactAnalysis:             "Disturbance of public peace, affecting sleep and well-being of neighbors.",
				SuggestedAction:            "Dispatch Tanod patrol to issue warning.",
				EstimatedResourceIntensity: models.ResourceLow,
				ConfidenceScore:            88,
			},
		},
		{
			ID:          demoID(3),
			Title:       "Broken Streetlight",
			Description: "Streetlight near the elementary school is flickering.",
			Location:    "Near Maysan Elem. School",
			Category:    "Infrastructure",
			SubmittedBy: "Andres B. (Resident)",
			SubmittedAt: now.Add(-48 * time.Hour),
			Status:      models.StatusResolved,
			AIAnalysis: &models.AIAnalysis{
				PriorityScore:              45,
				UrgencyLevel:               models.UrgencyLow,
				ImpactAnalysis:             "Reduced visibility at night, minor safety concern.",
				SuggestedAction:            "Schedule repair with electrical maintenance.",
				EstimatedResourceIntensity: models.ResourceLow,
				ConfidenceScore:            92,
			},
		},
	}
}
