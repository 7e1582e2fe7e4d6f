// Command voicecheck runs the built-in transcript corpus through the parser
// and prints a pass/fail report. It exits non-zero when any case fails.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/mr-aminul/moneylogger/pkg/voice"
)

func main() {
	verbose := flag.Bool("v", false, "print passing cases too")
	flag.Parse()

	parser := voice.New()
	results := parser.RunRegression(voice.RegressionCases(), voice.CoreCategories)

	pass := color.New(color.BgGreen, color.FgBlack).SprintFunc()
	fail := color.New(color.BgRed, color.FgWhite).SprintFunc()

	failed := 0
	for i, res := range results {
		if res.Passed() && !*verbose {
			continue
		}
		label := pass(" PASS ")
		if !res.Passed() {
			label = fail(" FAIL ")
			failed++
		}
		fmt.Printf("%s [%2d of %2d] %-45q -> %s %s / %s (%.2f)\n",
			label, i+1, len(results), res.Case.Input,
			res.Got.Amount, res.Got.Category, res.Got.Title, res.Got.Confidence.Overall)
		for _, f := range res.Failures {
			fmt.Printf("         %s\n", color.YellowString(f))
		}
	}

	fmt.Println()
	if failed > 0 {
		color.Red("%d/%d passed", len(results)-failed, len(results))
		os.Exit(1)
	}
	color.Green("%d/%d passed", len(results), len(results))
}
