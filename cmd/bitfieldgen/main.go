// Command bitfieldgen generates flag constants, a bitfield.Descriptor and typed accessors
// for struct fields tagged `bitfield:"seller,insane,stupid"`.
//
//	//go:generate bitfieldgen -t User --table User=users
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
)

func main() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Usage:   "show version",
		Aliases: []string{"v"},
	}
	err := (&cli.App{
		UseShortOptionHandling: true,
		Name:                   "bitfieldgen",
		Version:                "v0.1.0",
		Usage:                  "Generate flag accessors of bitfield tagged integer fields",
		ArgsUsage:              "[directory | files...]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "type",
				Usage:    "struct type names to generate",
				Required: true,
				Aliases:  []string{"t"},
			},
			&cli.StringSliceFlag{
				Name:    "table",
				Usage:   "table of a type as Type=table, default is the snake cased type name plus s",
				Aliases: []string{"b"},
			},
			&cli.StringSliceFlag{
				Name:    "tags",
				Usage:   "build tags to apply",
				Aliases: []string{"g"},
			},
			&cli.StringFlag{
				Name:        "out",
				DefaultText: "<type>_bitfields.go",
				Usage:       "output file name, all types into one file",
				Aliases:     []string{"o"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "debug generator",
				Aliases: []string{"d"},
			},
		},
		Suggest:              true,
		EnableBashCompletion: true,
		Action: func(c *cli.Context) error {
			files := []string{"."}
			if c.Args().Len() > 0 {
				files = c.Args().Slice()
			}
			tags := c.StringSlice("tags")
			var dir string
			if len(files) == 1 && isDir(files[0]) {
				dir = files[0]
			} else if len(tags) != 0 {
				return fmt.Errorf("--tags can only applies with directory")
			} else {
				dir = filepath.Dir(files[0])
			}
			tables, err := parseTables(c.StringSlice("table"))
			if err != nil {
				return err
			}
			g := &Generator{
				dir:    dir,
				tags:   tags,
				files:  files,
				types:  c.StringSlice("type"),
				tables: tables,
				out:    c.String("out"),
			}
			if c.Bool("debug") {
				g.Logf = log.Printf
			}
			return g.generate()
		},
	}).Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func parseTables(entries []string) (map[string]string, error) {
	tables := make(map[string]string, len(entries))
	for _, e := range entries {
		name, table, ok := strings.Cut(e, "=")
		if !ok || name == "" || table == "" {
			return nil, fmt.Errorf("invalid table mapping %q, want Type=table", e)
		}
		tables[name] = table
	}
	return tables, nil
}

func isDir(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}
