// Command example drives a running ostd through the canvas store: it builds a
// small tree, edits it, links evidence and deletes it again.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/meikuraledutech/ost"
	"github.com/meikuraledutech/ost/canvas"
	"github.com/meikuraledutech/ost/client"
	"github.com/meikuraledutech/ost/logging"
)

func main() {
	ctx := context.Background()

	baseURL := os.Getenv("OST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	api := client.New(baseURL, client.WithTimeout(5*time.Second))
	if _, err := api.Health(ctx); err != nil {
		log.Fatalf("health: %v", err)
	}
	if err := api.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	logger := logging.New(os.Stderr, slog.LevelInfo, "text")
	store := canvas.New(api, canvas.WithLogger(logger))
	if err := store.LoadCanvas(ctx); err != nil {
		log.Fatalf("load: %v", err)
	}

	// ── Build a tree ──────────────────────────────────────────────────
	outcome, err := store.AddNode(ctx, ost.KindOutcome, "")
	if err != nil {
		log.Fatalf("add outcome: %v", err)
	}
	if err := store.UpdateNodeData(ctx, outcome.ID, ost.OutcomePatch{Name: ost.Ptr("Grow retention")}); err != nil {
		log.Fatalf("rename outcome: %v", err)
	}

	first, err := store.AddNode(ctx, ost.KindOpportunity, outcome.ID)
	if err != nil {
		log.Fatalf("add opportunity: %v", err)
	}
	second, err := store.AddNode(ctx, ost.KindOpportunity, outcome.ID)
	if err != nil {
		log.Fatalf("add opportunity: %v", err)
	}
	fmt.Printf("opportunities at %v and %v\n", first.Position, second.Position)

	// ── Debounced edits ───────────────────────────────────────────────
	editor := canvas.NewEditor(store, 200*time.Millisecond)
	for _, name := range []string{"Onb", "Onboard", "Onboarding friction"} {
		if err := editor.Edit(ctx, first.ID, ost.OpportunityPatch{Name: ost.Ptr(name)}); err != nil {
			log.Fatalf("edit: %v", err)
		}
	}
	if err := editor.Flush(ctx); err != nil {
		log.Fatalf("flush: %v", err)
	}

	// ── Evidence ──────────────────────────────────────────────────────
	interview, err := api.CreateInterview(ctx, ost.Interview{Title: "Churned customer call", Interviewee: "Sam"})
	if err != nil {
		log.Fatalf("create interview: %v", err)
	}
	evidence, err := api.CreateEvidence(ctx, ost.Evidence{
		InterviewID: interview.ID,
		Type:        ost.EvidencePainPoint,
		Content:     "I never figured out how to invite my team.",
	})
	if err != nil {
		log.Fatalf("create evidence: %v", err)
	}
	if err := store.LinkEvidenceToOpportunity(ctx, evidence.ID, first.ID); err != nil {
		log.Fatalf("link evidence: %v", err)
	}

	// ── Solutions ─────────────────────────────────────────────────────
	idea := ost.SolutionCandidate{Title: "Guided team invite", Assumptions: []string{"Admins invite during setup"}}
	if _, err := store.PromoteIdeaToSolution(ctx, idea, first.ID); err != nil {
		log.Fatalf("promote: %v", err)
	}
	if err := store.OnConnect(ctx, first.ID, second.ID); err != nil {
		log.Fatalf("connect: %v", err)
	}

	fmt.Println("\ncanvas:")
	printJSON(map[string]any{"nodes": store.Nodes(), "edges": store.Edges()})

	// ── Delete everything under the outcome ──────────────────────────
	for _, res := range store.DeleteNode(ctx, outcome.ID) {
		status := "ok"
		if res.Err != nil {
			status = res.Err.Error()
		}
		fmt.Printf("deleted %s: %s\n", res.ID, status)
	}
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
