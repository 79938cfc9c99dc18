package main

import (
	"fmt"

	"nutriscan/internal/ui/signupcalc"

	"github.com/spf13/cobra"
)

var (
	bmiWeight     string
	bmiWeightUnit string
	bmiHeight     string
	bmiFeet       string
	bmiInches     string
	bmiHeightUnit string
)

var bmiCmd = &cobra.Command{
	Use:   "bmi",
	Short: "Compute BMI the way the signup form does",
	Example: `  nutriscan bmi --weight 154 --weight-unit lb --feet 5 --inches 9 --height-unit ft
  nutriscan bmi --weight 70 --height 175`,
	Args: cobra.NoArgs,
	RunE: runBMI,
}

func init() {
	f := bmiCmd.Flags()
	f.StringVar(&bmiWeight, "weight", "", "weight in --weight-unit")
	f.StringVar(&bmiWeightUnit, "weight-unit", string(signupcalc.Kg), "kg or lb")
	f.StringVar(&bmiHeight, "height", "", "height in cm")
	f.StringVar(&bmiFeet, "feet", "", "height feet (with --height-unit ft)")
	f.StringVar(&bmiInches, "inches", "", "height inches (with --height-unit ft)")
	f.StringVar(&bmiHeightUnit, "height-unit", string(signupcalc.Cm), "cm or ft")
	rootCmd.AddCommand(bmiCmd)
}

func runBMI(cmd *cobra.Command, args []string) error {
	wu := signupcalc.WeightUnit(bmiWeightUnit)
	if wu != signupcalc.Kg && wu != signupcalc.Lb {
		return fmt.Errorf("invalid --weight-unit %q", bmiWeightUnit)
	}
	hu := signupcalc.HeightUnit(bmiHeightUnit)
	if hu != signupcalc.Cm && hu != signupcalc.FtIn {
		return fmt.Errorf("invalid --height-unit %q", bmiHeightUnit)
	}

	calc := signupcalc.New()
	calc.SetWeightUnit(wu)
	calc.SetHeightUnit(hu)
	calc.SetWeight(bmiWeight)
	if hu == signupcalc.Cm {
		calc.SetHeightCm(bmiHeight)
	} else {
		calc.SetFeet(bmiFeet)
		calc.SetInches(bmiInches)
	}

	v := calc.View()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "weight_kg: %s\n", v.WeightKgField)
	fmt.Fprintf(out, "height_cm: %s\n", v.HeightCmField)
	fmt.Fprintf(out, "BMI: %s", v.BMIText)
	if v.Category != "" {
		fmt.Fprintf(out, " (%s)", v.Category)
	}
	fmt.Fprintln(out)
	return nil
}
