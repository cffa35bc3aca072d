package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/catalog"
)

func newModelsCommand(a *app) *cobra.Command {
	var listOnly bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "Browse the model catalog and pick a default",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initializeConfigOnly(); err != nil {
				return err
			}
			if a.catalog == nil {
				a.catalog = catalog.NewService(a.logger)
			}

			if listOnly || !isTTY() {
				return a.printModels(cmd.Context())
			}

			model, err := a.pickModel(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.configMgr.Set("default_model", model); err != nil {
				return err
			}
			if err := a.configMgr.Save(); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Println(styleSuccess("default model set to " + model))
			return nil
		},
	}
	cmd.Flags().BoolVar(&listOnly, "list", false, "Print the catalog without prompting")
	return cmd
}

func (a *app) printModels(ctx context.Context) error {
	listing := a.catalog.Models(ctx)
	if listing.Fallback {
		fmt.Println(styleHint("catalog unavailable, showing the static fallback list"))
	}
	for _, tier := range []catalog.Tier{catalog.TierFree, catalog.TierBudget, catalog.TierPremium} {
		ids := listing.Tiered()[tier]
		if len(ids) == 0 {
			continue
		}
		fmt.Println(bold(string(tier)))
		for _, id := range ids {
			fmt.Println("  " + id)
		}
	}
	return nil
}

// pickModel runs the two-step picker: tier, then model.
func (a *app) pickModel(ctx context.Context) (string, error) {
	listing := a.catalog.Models(ctx)
	tiered := listing.Tiered()

	tiers := make([]string, 0, 3)
	for _, tier := range []catalog.Tier{catalog.TierFree, catalog.TierBudget, catalog.TierPremium} {
		if len(tiered[tier]) > 0 {
			tiers = append(tiers, string(tier))
		}
	}
	if len(tiers) == 0 {
		return "", fmt.Errorf("no models available")
	}

	tierPrompt := promptui.Select{
		Label: "Model tier",
		Items: tiers,
		Size:  len(tiers),
	}
	_, tier, err := tierPrompt.Run()
	if err != nil {
		return "", err
	}

	modelPrompt := promptui.Select{
		Label: "Model",
		Items: tiered[catalog.Tier(tier)],
		Size:  12,
		Searcher: func(input string, index int) bool {
			ids := tiered[catalog.Tier(tier)]
			return index < len(ids) && strings.Contains(strings.ToLower(ids[index]), strings.ToLower(input))
		},
		StartInSearchMode: true,
	}
	_, model, err := modelPrompt.Run()
	if err != nil {
		return "", err
	}
	return model, nil
}
