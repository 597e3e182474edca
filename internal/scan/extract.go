package scan

import (
	"go/ast"
	"go/token"
	"path"
	"strconv"
	"strings"

	"autoplugin/internal/marker"
	"autoplugin/internal/source"
)

// Extract walks the top-level declarations of file once, in source order,
// and records every marker line together with the declaration header it
// is attached to. Declarations without markers are kept out of the result.
// Marker lines no declaration owns end up in Orphans.
func Extract(tf *token.File, file *ast.File) Raw {
	x := extractor{tf: tf, owned: make(map[token.Pos]bool)}
	raw := Raw{Package: file.Name.Name}
	raw.PackageMarkers = x.markers(file.Doc)
	raw.Imports = imports(file)

	for _, decl := range file.Decls {
		switch decl := decl.(type) {
		case *ast.GenDecl:
			if decl.Tok == token.IMPORT {
				continue
			}
			for i, spec := range decl.Specs {
				switch spec := spec.(type) {
				case *ast.TypeSpec:
					raw.Names = append(raw.Names, spec.Name.Name)
					ms := x.markers(decl.Doc, spec.Doc)
					if len(ms) == 0 {
						continue
					}
					start, end := x.byteRange(spec.Pos(), spec.End())
					raw.Decls = append(raw.Decls, RawDecl{
						Name:       spec.Name.Name,
						Kind:       DeclType,
						TypeParams: fieldNames(spec.TypeParams),
						Start:      start,
						End:        end,
						Markers:    ms,
					})
				case *ast.ValueSpec:
					for _, n := range spec.Names {
						raw.Names = append(raw.Names, n.Name)
					}
					// a group doc belongs to the first spec only, so each
					// marker is reported once
					docs := []*ast.CommentGroup{spec.Doc}
					if i == 0 {
						docs = []*ast.CommentGroup{decl.Doc, spec.Doc}
					}
					ms := x.markers(docs...)
					if len(ms) == 0 {
						continue
					}
					start, end := x.byteRange(spec.Pos(), spec.End())
					raw.Decls = append(raw.Decls, RawDecl{
						Name:    spec.Names[0].Name,
						Kind:    DeclValue,
						Start:   start,
						End:     end,
						Markers: ms,
					})
				}
			}
		case *ast.FuncDecl:
			if decl.Recv == nil {
				raw.Names = append(raw.Names, decl.Name.Name)
			}
			ms := x.markers(decl.Doc)
			if len(ms) == 0 {
				continue
			}
			rd := RawDecl{
				Name:       decl.Name.Name,
				Kind:       DeclFunc,
				TypeParams: fieldNames(decl.Type.TypeParams),
				Markers:    ms,
			}
			if decl.Recv != nil {
				rd.Kind = DeclMethod
				if recv := receiverType(decl.Recv); recv != "" {
					rd.Name = recv + "." + rd.Name
				}
			}
			rd.Start, rd.End = x.byteRange(decl.Pos(), decl.Type.End())
			raw.Decls = append(raw.Decls, rd)
		}
	}

	for _, g := range file.Comments {
		for _, c := range g.List {
			if marker.IsMarker(c.Text) && !x.owned[c.Pos()] {
				raw.Orphans = append(raw.Orphans, x.marker(c))
			}
		}
	}
	return raw
}

type extractor struct {
	tf    *token.File
	owned map[token.Pos]bool
}

// markers collects marker lines from the given comment groups in order
// and marks them as owned.
func (x *extractor) markers(groups ...*ast.CommentGroup) []RawMarker {
	var out []RawMarker
	for _, g := range groups {
		if g == nil {
			continue
		}
		for _, c := range g.List {
			if !marker.IsMarker(c.Text) {
				continue
			}
			x.owned[c.Pos()] = true
			out = append(out, x.marker(c))
		}
	}
	return out
}

func (x *extractor) marker(c *ast.Comment) RawMarker {
	start, end := x.byteRange(c.Pos(), c.End())
	return RawMarker{Text: c.Text, Start: start, End: end}
}

func (x *extractor) byteRange(pos, end token.Pos) (uint32, uint32) {
	sp := source.FromToken(0, x.tf, pos, end)
	return sp.Start, sp.End
}

// receiverType names the receiver base type: T for T, *T and *T[K].
func receiverType(recv *ast.FieldList) string {
	if len(recv.List) == 0 {
		return ""
	}
	expr := recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	switch x := expr.(type) {
	case *ast.IndexExpr:
		expr = x.X
	case *ast.IndexListExpr:
		expr = x.X
	}
	if id, ok := expr.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

func imports(file *ast.File) []Import {
	out := make([]Import, 0, len(file.Imports))
	for _, spec := range file.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := ""
		if spec.Name != nil {
			name = spec.Name.Name
		}
		if name == "_" || name == "." {
			continue
		}
		if name == "" {
			name = defaultQualifier(p)
		}
		out = append(out, Import{Name: name, Path: p})
	}
	return out
}

// defaultQualifier guesses the package name of an unnamed import from its
// path: the last element, skipping a major version suffix.
// gopkg.in style ".vN" suffixes are dropped too.
func defaultQualifier(importPath string) string {
	base := path.Base(importPath)
	if len(base) > 1 && base[0] == 'v' {
		if _, err := strconv.Atoi(base[1:]); err == nil {
			if dir := path.Dir(importPath); dir != "." {
				base = path.Base(dir)
			}
		}
	}
	if i := strings.LastIndex(base, ".v"); i > 0 {
		if _, err := strconv.Atoi(base[i+2:]); err == nil {
			base = base[:i]
		}
	}
	base = strings.TrimPrefix(base, "go-")
	return strings.ReplaceAll(base, "-", "_")
}

func fieldNames(list *ast.FieldList) []string {
	if list == nil {
		return nil
	}
	var out []string
	for _, f := range list.List {
		for _, n := range f.Names {
			out = append(out, n.Name)
		}
	}
	return out
}
