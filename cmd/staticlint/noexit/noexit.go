// Package noexit содержит анализатор, который запрещает завершать процесс
// прямо из функции main пакета main: os.Exit, log.Fatal* и Fatal-методы
// логгеров zap пропускают defer и сброс буферов логгера.
package noexit

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
)

// forbidden — полные имена запрещённых функций.
var forbidden = map[string]bool{
	"os.Exit":     true,
	"log.Fatal":   true,
	"log.Fatalf":  true,
	"log.Fatalln": true,

	"(*go.uber.org/zap.Logger).Fatal":          true,
	"(*go.uber.org/zap.SugaredLogger).Fatal":   true,
	"(*go.uber.org/zap.SugaredLogger).Fatalf":  true,
	"(*go.uber.org/zap.SugaredLogger).Fatalw":  true,
	"(*go.uber.org/zap.SugaredLogger).Fatalln": true,
}

// Analyzer запрещает os.Exit, log.Fatal* и zap Fatal* в функции main.
var Analyzer = &analysis.Analyzer{
	Name: "noexit",
	Doc:  "запрещает вызывать os.Exit, log.Fatal* и Fatal-методы zap в функции main пакета main",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Name.Name != "main" || fn.Recv != nil || fn.Body == nil {
				continue
			}

			ast.Inspect(fn.Body, func(n ast.Node) bool {
				// замыкания внутри main не проверяем: они могут выполняться позже
				if _, ok := n.(*ast.FuncLit); ok {
					return false
				}
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}
				sel, ok := call.Fun.(*ast.SelectorExpr)
				if !ok {
					return true
				}
				f, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
				if ok && forbidden[f.FullName()] {
					pass.Reportf(call.Pos(), "вызов %s в функции main запрещён", f.FullName())
				}
				return true
			})
		}
	}
	return nil, nil
}
