// Package main запускает multichecker проекта.
//
// Он включает:
//   - анализаторы go/analysis/passes: shadow, structtag, nilness, fieldalignment, printf
//   - все SA-анализаторы staticcheck
//   - S1000 (упрощения) и U1000 (неиспользуемый код) из staticcheck
//   - публичный анализатор bodyclose
//   - собственный анализатор noexit (запрещает os.Exit и log.Fatal в main)
//
// Запуск:
//
//	go run ./cmd/staticlint ./...
package main

import (
	"strings"

	"github.com/timakin/bodyclose/passes/bodyclose"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/fieldalignment"
	"golang.org/x/tools/go/analysis/passes/nilness"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/shadow"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"honnef.co/go/tools/staticcheck"

	"github.com/Totarae/LearningLog/cmd/staticlint/noexit"
)

func main() {
	multichecker.Main(analyzers()...)
}

func analyzers() []*analysis.Analyzer {
	list := []*analysis.Analyzer{
		shadow.Analyzer,
		structtag.Analyzer,
		nilness.Analyzer,
		fieldalignment.Analyzer,
		printf.Analyzer,
	}

	// SA-анализаторы
	for _, a := range staticcheck.Analyzers {
		if strings.HasPrefix(a.Analyzer.Name, "SA") {
			list = append(list, a.Analyzer)
		}
	}

	for _, name := range []string{"S1000", "U1000"} {
		if a := findAnalyzer(name); a != nil {
			list = append(list, a)
		}
	}

	return append(list, bodyclose.Analyzer, noexit.Analyzer)
}

func findAnalyzer(name string) *analysis.Analyzer {
	for _, a := range staticcheck.Analyzers {
		if a.Analyzer.Name == name {
			return a.Analyzer
		}
	}
	return nil
}
