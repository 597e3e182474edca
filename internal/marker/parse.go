package marker

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"
	"unicode"
)

// ParseError reports malformed marker syntax. Offset is a byte offset into
// the marker text handed to Parse.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return e.Msg
}

// UnknownVerbError reports a marker line with an unrecognised verb.
type UnknownVerbError struct {
	Verb string
}

func (e *UnknownVerbError) Error() string {
	return fmt.Sprintf("unknown autoplugin marker %q", e.Verb)
}

// IsMarker reports whether a raw comment line is an autoplugin marker.
func IsMarker(text string) bool {
	return strings.HasPrefix(text, Prefix)
}

// Parse turns one marker comment line, prefix included, into an Annotation.
func Parse(text string) (Annotation, error) {
	if !IsMarker(text) {
		return nil, &ParseError{Msg: "missing " + Prefix + " prefix"}
	}
	body := strings.TrimRightFunc(text[len(Prefix):], unicode.IsSpace)
	base := len(Prefix)

	verbEnd := 0
	for verbEnd < len(body) && isVerbByte(body[verbEnd]) {
		verbEnd++
	}
	verb := body[:verbEnd]
	if verb == "" {
		return nil, &ParseError{Offset: base, Msg: "expected marker name after " + Prefix}
	}

	rest := body[verbEnd:]
	restOff := base + verbEnd
	trimmed := strings.TrimLeftFunc(rest, unicode.IsSpace)
	restOff += len(rest) - len(trimmed)

	var args []arg
	if trimmed != "" {
		if trimmed[0] != '(' || trimmed[len(trimmed)-1] != ')' {
			return nil, &ParseError{Offset: restOff, Msg: fmt.Sprintf("expected '(' after %s", verb)}
		}
		inner := trimmed[1 : len(trimmed)-1]
		var err error
		args, err = splitArgs(inner, restOff+1)
		if err != nil {
			return nil, err
		}
	}

	if verb == PluginVerb {
		return parsePlugin(args)
	}
	cat, ok := CategoryFromVerb(verb)
	if !ok {
		return nil, &UnknownVerbError{Verb: verb}
	}
	if cat == AddSystem {
		return parseSystem(args)
	}
	return parseTarget(cat, args)
}

func isVerbByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

type arg struct {
	off  int
	text string
}

// splitArgs splits src on top-level commas. A trailing comma is allowed.
func splitArgs(src string, base int) ([]arg, error) {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))

	var firstErr *ParseError
	var s scanner.Scanner
	s.Init(file, []byte(src), func(pos token.Position, msg string) {
		if firstErr == nil {
			firstErr = &ParseError{Offset: base + pos.Offset, Msg: msg}
		}
	}, 0)

	var out []arg
	depth, start := 0, 0
	for {
		pos, tok, _ := s.Scan()
		if tok == token.EOF {
			break
		}
		off := file.Offset(pos)
		switch tok {
		case token.LPAREN, token.LBRACK, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
			if depth < 0 {
				return nil, &ParseError{Offset: base + off, Msg: "unbalanced " + tok.String()}
			}
		case token.COMMA:
			if depth > 0 {
				continue
			}
			seg := src[start:off]
			if strings.TrimSpace(seg) == "" {
				return nil, &ParseError{Offset: base + start, Msg: "empty argument"}
			}
			out = append(out, arg{off: base + start, text: seg})
			start = off + 1
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if depth != 0 {
		return nil, &ParseError{Offset: base + len(src), Msg: "unbalanced brackets"}
	}
	if tail := src[start:]; strings.TrimSpace(tail) != "" {
		out = append(out, arg{off: base + start, text: tail})
	}
	return out, nil
}

// keyValue splits `key = value`. A `==` right after the key is not an
// assignment.
func keyValue(a arg) (key, value string, valueOff int, ok bool) {
	text := strings.TrimLeftFunc(a.text, unicode.IsSpace)
	lead := len(a.text) - len(text)
	i := 0
	for i < len(text) && (text[i] == '_' || unicode.IsLetter(rune(text[i])) || (i > 0 && unicode.IsDigit(rune(text[i])))) {
		i++
	}
	if i == 0 {
		return "", "", 0, false
	}
	j := i
	for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
		j++
	}
	if j >= len(text) || text[j] != '=' || (j+1 < len(text) && text[j+1] == '=') {
		return "", "", 0, false
	}
	value = text[j+1:]
	valueOff = a.off + lead + j + 1
	trimmed := strings.TrimLeftFunc(value, unicode.IsSpace)
	valueOff += len(value) - len(trimmed)
	return text[:i], strings.TrimSpace(trimmed), valueOff, true
}

// genericsGroup matches `generics(T, ...)` and returns the inner text.
func genericsGroup(a arg) (inner string, innerOff int, ok bool) {
	text := strings.TrimSpace(a.text)
	lead := strings.Index(a.text, text)
	const kw = "generics"
	if !strings.HasPrefix(text, kw) {
		return "", 0, false
	}
	rest := strings.TrimLeft(text[len(kw):], " \t")
	if rest == "" || rest[0] != '(' || rest[len(rest)-1] != ')' {
		return "", 0, false
	}
	open := len(text) - len(rest)
	return rest[1 : len(rest)-1], a.off + lead + open + 1, true
}

func parseInstantiation(inner string, off int) (Instantiation, error) {
	if strings.TrimSpace(inner) == "" {
		return nil, &ParseError{Offset: off, Msg: "generics() requires at least one type argument"}
	}
	exprs, err := parseExprList(inner, off)
	if err != nil {
		return nil, err
	}
	for _, e := range exprs {
		if !isTypeExpr(e) {
			return nil, &ParseError{Offset: off, Msg: fmt.Sprintf("expected type in generics(...), found %T", e)}
		}
	}
	return Instantiation(exprs), nil
}

// parseExprList parses a comma separated expression list by wrapping it
// in a call.
func parseExprList(src string, off int) ([]ast.Expr, error) {
	expr, err := parser.ParseExpr("_(" + src + ")")
	if err != nil {
		return nil, &ParseError{Offset: off, Msg: firstLine(err)}
	}
	call, ok := expr.(*ast.CallExpr)
	if !ok || call.Ellipsis.IsValid() {
		return nil, &ParseError{Offset: off, Msg: "expected expression list"}
	}
	return call.Args, nil
}

func parseExpr(src string, off int) (ast.Expr, error) {
	if src == "" {
		return nil, &ParseError{Offset: off, Msg: "expected expression"}
	}
	e, err := parser.ParseExpr(src)
	if err != nil {
		return nil, &ParseError{Offset: off, Msg: firstLine(err)}
	}
	return e, nil
}

func firstLine(err error) string {
	if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
		return list[0].Msg
	}
	return err.Error()
}

func isTypeExpr(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.Ident:
		return true
	case *ast.SelectorExpr:
		_, ok := e.X.(*ast.Ident)
		return ok
	case *ast.StarExpr:
		return isTypeExpr(e.X)
	case *ast.ParenExpr:
		return isTypeExpr(e.X)
	case *ast.ArrayType:
		return isTypeExpr(e.Elt)
	case *ast.MapType:
		return isTypeExpr(e.Key) && isTypeExpr(e.Value)
	case *ast.ChanType:
		return isTypeExpr(e.Value)
	case *ast.FuncType, *ast.InterfaceType, *ast.StructType:
		return true
	case *ast.IndexExpr:
		return isTypeExpr(e.X) && isTypeExpr(e.Index)
	case *ast.IndexListExpr:
		if !isTypeExpr(e.X) {
			return false
		}
		for _, idx := range e.Indices {
			if !isTypeExpr(idx) {
				return false
			}
		}
		return true
	}
	return false
}

func parseTarget(cat Category, args []arg) (*Target, error) {
	t := &Target{Category: cat}
	for _, a := range args {
		inner, off, ok := genericsGroup(a)
		if !ok {
			return nil, &ParseError{Offset: a.off, Msg: fmt.Sprintf("unexpected argument %q to %s, expected generics(...)", strings.TrimSpace(a.text), cat)}
		}
		inst, err := parseInstantiation(inner, off)
		if err != nil {
			return nil, err
		}
		t.Generics = append(t.Generics, inst)
	}
	return t, nil
}

func parseSystem(args []arg) (*System, error) {
	s := &System{}
	seen := make(map[string]bool)
	for _, a := range args {
		if inner, off, ok := genericsGroup(a); ok {
			inst, err := parseInstantiation(inner, off)
			if err != nil {
				return nil, err
			}
			s.Generics = append(s.Generics, inst)
			continue
		}
		key, value, voff, ok := keyValue(a)
		if !ok {
			return nil, &ParseError{Offset: a.off, Msg: fmt.Sprintf("unexpected argument %q to add_system", strings.TrimSpace(a.text))}
		}
		if seen[key] {
			return nil, &ParseError{Offset: a.off, Msg: fmt.Sprintf("%s given twice", key)}
		}
		seen[key] = true

		var err error
		switch key {
		case "schedule":
			s.Schedule, err = parseExpr(value, voff)
		case "after":
			s.After, err = parseSystemList(value, voff)
		case "before":
			s.Before, err = parseSystemList(value, voff)
		case "run_if":
			s.RunIf, err = parseExpr(value, voff)
		case "in_set":
			s.InSet, err = parseExpr(value, voff)
		default:
			err = &ParseError{Offset: a.off, Msg: fmt.Sprintf("unknown add_system parameter %q", key)}
		}
		if err != nil {
			return nil, err
		}
	}
	if s.Schedule == nil {
		return nil, &ParseError{Msg: "add_system requires schedule = <expr>"}
	}
	return s, nil
}

// parseSystemList accepts either one expression or `[a, b]`.
func parseSystemList(value string, off int) ([]ast.Expr, error) {
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		inner := value[1 : len(value)-1]
		if strings.TrimSpace(inner) == "" {
			return nil, &ParseError{Offset: off, Msg: "empty system list"}
		}
		return parseExprList(inner, off+1)
	}
	e, err := parseExpr(value, off)
	if err != nil {
		return nil, err
	}
	return []ast.Expr{e}, nil
}

func parsePlugin(args []arg) (*Plugin, error) {
	p := &Plugin{}
	seen := make(map[string]bool)
	for _, a := range args {
		key, value, voff, ok := keyValue(a)
		if !ok {
			return nil, &ParseError{Offset: a.off, Msg: fmt.Sprintf("unexpected argument %q to plugin, expected init_name = ident or app = ident", strings.TrimSpace(a.text))}
		}
		if seen[key] {
			return nil, &ParseError{Offset: a.off, Msg: fmt.Sprintf("%s given twice", key)}
		}
		seen[key] = true
		if !token.IsIdentifier(value) {
			return nil, &ParseError{Offset: voff, Msg: fmt.Sprintf("%s must be an identifier, found %q", key, value)}
		}
		switch key {
		case "init_name":
			p.InitName = value
		case "app":
			p.App = value
		default:
			return nil, &ParseError{Offset: a.off, Msg: fmt.Sprintf("unknown plugin option %q", key)}
		}
	}
	return p, nil
}
