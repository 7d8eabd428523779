package main

import (
	"bytes"
	"fmt"
	"go/ast"
	"strings"

	"golang.org/x/tools/go/packages"
)

type Context struct {
	Pkg  []*Package
	Logf func(format string, args ...any)
}

func (c *Context) Printf(format string, args ...any) {
	if c.Logf != nil {
		c.Logf(format, args...)
	}
}

func (c *Context) Parse(tags []string, files []string) error {
	pkg, err := packages.Load(&packages.Config{
		Mode:       packages.NeedName | packages.NeedSyntax | packages.NeedFiles,
		BuildFlags: []string{fmt.Sprintf("-tags=%s", strings.Join(tags, " "))},
		Tests:      false,
		Logf:       c.Logf,
	}, files...)
	if err != nil {
		return err
	}
	if len(pkg) == 0 {
		return fmt.Errorf("no package found in %v", files)
	}
	c.Pkg = make([]*Package, len(pkg))
	for i, p := range pkg {
		c.Pkg[i] = &Package{Name: p.Name, Files: p.Syntax}
		c.Printf("loaded package %s with %d files", p.Name, len(p.Syntax))
	}
	return nil
}

type Package struct {
	Name  string
	Files []*ast.File
}

// Writer accumulates generated source.
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer {
	return new(Writer)
}

func (s *Writer) Bytes() []byte {
	return s.buf.Bytes()
}

func (s *Writer) F(format string, args ...any) *Writer {
	_, _ = fmt.Fprintf(&s.buf, format, args...)
	return s
}
