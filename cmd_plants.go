package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/RichardoC/gardenllm/internal/models"
	"github.com/spf13/cobra"
)

var plantsCmd = &cobra.Command{
	Use:   "plants",
	Short: "Plant database operations",
	Long:  `List, add and update plants in the configured plant database.`,
}

var plantsListCmd = &cobra.Command{
	Use:   "list [name]",
	Short: "List plants, optionally matching a name",
	RunE:  runPlantsList,
}

var plantsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a plant or update it by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlantsAdd,
}

var plantsUpdateCmd = &cobra.Command{
	Use:   "update <id|name> <field> <value>",
	Short: "Update one field of a plant",
	Long: `Update a single field. Field names are the sheet headers, for example
"Location", "Watering Needs" or "Photo URL".`,
	Args: cobra.ExactArgs(3),
	RunE: runPlantsUpdate,
}

func init() {
	plantsCmd.AddCommand(plantsListCmd)
	plantsCmd.AddCommand(plantsAddCmd)
	plantsCmd.AddCommand(plantsUpdateCmd)

	plantsAddCmd.Flags().String("location", "", "Where the plant grows")
	plantsAddCmd.Flags().String("description", "", "Short description")
	plantsAddCmd.Flags().String("light", "", "Light requirements")
	plantsAddCmd.Flags().String("water", "", "Watering needs")
	plantsAddCmd.Flags().String("photo", "", "Photo URL")
	plantsAddCmd.Flags().String("notes", "", "Care notes")
}

func runPlantsList(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var terms []string
	if len(args) > 0 {
		terms = append(terms, strings.Join(args, " "))
	}
	found, err := a.Plants.Find(commandContext(cmd), terms...)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No plants found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLOCATION")
	for _, p := range found {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.Location)
	}
	return w.Flush()
}

func runPlantsAdd(cmd *cobra.Command, args []string) error {
	flag := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	p := models.Plant{
		Name:              args[0],
		Location:          flag("location"),
		Description:       flag("description"),
		LightRequirements: flag("light"),
		WateringNeeds:     flag("water"),
		PhotoURL:          flag("photo"),
		CareNotes:         flag("notes"),
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	saved, err := a.Plants.Upsert(commandContext(cmd), p)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (id %s)\n", saved.Name, saved.ID)
	return nil
}

func runPlantsUpdate(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Plants.UpdateField(commandContext(cmd), args[0], args[1], args[2]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s of %s\n", args[1], args[0])
	return nil
}
