package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/RichardoC/gardenllm/internal/weather"
	"github.com/spf13/cobra"
)

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Local weather for the garden",
}

var weatherCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show current conditions and their garden impact",
	RunE:  runWeatherCurrent,
}

var weatherForecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Show the daily forecast",
	RunE:  runWeatherForecast,
}

func init() {
	weatherCmd.AddCommand(weatherCurrentCmd)
	weatherCmd.AddCommand(weatherForecastCmd)

	weatherCurrentCmd.Flags().Bool("advice", false, "Also ask the model for plant care advice")
	weatherForecastCmd.Flags().IntP("days", "d", 5, "Number of days")
}

func runWeatherCurrent(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	cur, err := a.Weather.Current(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %.1f°F (feels like %.1f°F), humidity %d%%, wind %.1f mph\n",
		cur.Description, cur.Temperature, cur.FeelsLike, cur.Humidity, cur.WindSpeed)

	impact := weather.Analyze(*cur)
	for _, line := range []string{impact.Temperature, impact.Humidity, impact.Wind} {
		if line != "" {
			fmt.Fprintf(out, "  - %s\n", line)
		}
	}

	if advice, _ := cmd.Flags().GetBool("advice"); advice {
		text, err := a.Chat.PlantCareAdvice(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, text)
	}
	return nil
}

func runWeatherForecast(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	forecast, err := a.Weather.Daily(commandContext(cmd), days)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tLOW\tHIGH\tRAIN\tCONDITIONS")
	for _, d := range forecast {
		fmt.Fprintf(w, "%s\t%.0f°F\t%.0f°F\t%.0f%%\t%s\n",
			d.Date.Format("Mon Jan 2"), d.TempMin, d.TempMax, d.RainProbability, d.RainDescription)
	}
	return w.Flush()
}
