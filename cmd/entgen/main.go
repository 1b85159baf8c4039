// Entgen - regenerates the runtime entry point table from source directives
//
// Scans a package for methods on Runtime carrying a //tern:entrypoint
// directive in their doc comment and emits the table that binds each
// exported symbol to its method, in registry order: source files sorted
// by name, declaration order within each file.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/ast"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

const directive = "//tern:entrypoint"

// entry is one directive occurrence
type entry struct {
	file   string
	order  int
	symbol string
	method string
}

func main() {
	pkgPath := flag.String("pkg", ".", "Package to scan for directives")
	out := flag.String("o", "entrypoint_table_gen.go", "Output file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: entgen [options]\n\n")
		fmt.Fprintf(os.Stderr, "Regenerates the entry point table from %s directives.\n\n", directive)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	pkgName, entries, err := scan(*pkgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no %s directives found in %s\n", directive, *pkgPath)
		os.Exit(1)
	}

	src, err := render(pkgName, entries)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, src, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d entry points)\n", *out, len(entries))
}

// scan loads the package syntax and collects directive-carrying Runtime
// methods in table order.
func scan(pkgPath string) (string, []entry, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax,
	}

	pkgs, err := packages.Load(cfg, pkgPath)
	if err != nil {
		return "", nil, fmt.Errorf("loading %s: %w", pkgPath, err)
	}
	if len(pkgs) == 0 {
		return "", nil, fmt.Errorf("no packages found for %s", pkgPath)
	}
	if len(pkgs[0].Errors) > 0 {
		return "", nil, fmt.Errorf("package errors: %v", pkgs[0].Errors)
	}
	pkg := pkgs[0]

	var entries []entry
	for _, f := range pkg.Syntax {
		fileName := filepath.Base(pkg.Fset.Position(f.Pos()).Filename)
		order := 0
		for _, decl := range f.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Doc == nil {
				continue
			}
			symbol := directiveSymbol(fn.Doc)
			if symbol == "" {
				continue
			}
			if !isRuntimeMethod(fn) {
				return "", nil, fmt.Errorf("%s: %s directive on %s, which is not a Runtime method",
					fileName, directive, fn.Name.Name)
			}
			entries = append(entries, entry{
				file:   fileName,
				order:  order,
				symbol: symbol,
				method: fn.Name.Name,
			})
			order++
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].file != entries[j].file {
			return entries[i].file < entries[j].file
		}
		return entries[i].order < entries[j].order
	})

	seen := make(map[string]string)
	for _, e := range entries {
		if prev, dup := seen[e.symbol]; dup {
			return "", nil, fmt.Errorf("symbol %s declared by both %s and %s", e.symbol, prev, e.method)
		}
		seen[e.symbol] = e.method
	}

	return pkg.Name, entries, nil
}

// directiveSymbol extracts the symbol from a doc comment's directive
// line, or returns "" when the comment carries none.
func directiveSymbol(doc *ast.CommentGroup) string {
	for _, c := range doc.List {
		if rest, ok := strings.CutPrefix(c.Text, directive); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func isRuntimeMethod(fn *ast.FuncDecl) bool {
	if fn.Recv == nil || len(fn.Recv.List) != 1 {
		return false
	}
	star, ok := fn.Recv.List[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}
	ident, ok := star.X.(*ast.Ident)
	return ok && ident.Name == "Runtime"
}

func render(pkgName string, entries []entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("// Code generated by entgen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", pkgName)
	buf.WriteString("// entrypointTable lists the compiled-code entry points in registry order:\n")
	buf.WriteString("// source files sorted by name, declaration order within each file.\n")
	buf.WriteString("func (rt *Runtime) entrypointTable() []tableEntry {\n")
	buf.WriteString("\treturn []tableEntry{\n")
	for _, e := range entries {
		fmt.Fprintf(&buf, "\t\t{%q, rt.%s},\n", e.symbol, e.method)
	}
	buf.WriteString("\t}\n}\n")
	return format.Source(buf.Bytes())
}
