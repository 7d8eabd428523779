// Command bitfields compiles flag conditions and updates of the models declared in a HOCON file,
// runs them against a database or serves them over HTTP.
//
//	bitfields -c app.conf where -m users seller '!insane'
//	bitfields -c app.conf apply -m users --where seller insane=false
//	bitfields -c app.conf serve
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ZenLiuCN/bitfields/conf"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := App().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var (
	modelFlag = &cli.StringFlag{
		Name:     "model",
		Usage:    "model name declared under bitfields{}",
		Required: true,
		Aliases:  []string{"m"},
	}
	modeFlag = &cli.StringFlag{
		Name:    "mode",
		Usage:   "override query mode: in_list, bit_operator or bit_operator_or",
		Aliases: []string{"q"},
	}
)

func App() *cli.App {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Usage:   "show version",
		Aliases: []string{"v"},
	}
	return &cli.App{
		UseShortOptionHandling: true,
		Name:                   "bitfields",
		Version:                "v0.1.0",
		Usage:                  "Compile named boolean flags packed in integer columns into SQL",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "conf",
				Usage:   "HOCON configuration file",
				Value:   "bitfields.conf",
				Aliases: []string{"c"},
			},
		},
		Before: loadConf,
		Suggest:              true,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:      "where",
				Usage:     "print the condition matching flags",
				ArgsUsage: "name | !name | name=value ...",
				Flags:     []cli.Flag{modelFlag, modeFlag},
				Action:    where,
			},
			{
				Name:      "update",
				Usage:     "print the assignments setting flags",
				ArgsUsage: "name | !name | name=value ...",
				Flags:     []cli.Flag{modelFlag},
				Action:    update,
			},
			{
				Name:      "bits",
				Usage:     "print the column values of flags",
				ArgsUsage: "name | !name | name=value ...",
				Flags:     []cli.Flag{modelFlag},
				Action:    bits,
			},
			{
				Name:   "scopes",
				Usage:  "print the generated scopes of a model",
				Flags:  []cli.Flag{modelFlag},
				Action: scopes,
			},
			{
				Name:      "count",
				Usage:     "count rows matching flags in the configured database",
				ArgsUsage: "name | !name | name=value ...",
				Flags:     []cli.Flag{modelFlag, modeFlag},
				Action:    count,
			},
			{
				Name:      "apply",
				Usage:     "set flags on rows matching --where in the configured database",
				ArgsUsage: "name | !name | name=value ...",
				Flags: []cli.Flag{modelFlag, modeFlag,
					&cli.StringSliceFlag{
						Name:    "where",
						Usage:   "condition flags, same form as arguments",
						Aliases: []string{"w"},
					},
				},
				Action: apply,
			},
			{
				Name:      "hash",
				Usage:     "hash a client secret for jwt.clients",
				ArgsUsage: "secret",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "argon2", Usage: "use argon2id instead of bcrypt"},
					&cli.IntFlag{Name: "cost", Usage: "bcrypt cost", Value: 10},
					&cli.StringFlag{Name: "totp", Usage: "also generate a totp key of this account"},
				},
				Action: hash,
			},
			{
				Name:   "serve",
				Usage:  "serve the compile API as configured under http{}",
				Action: serve,
			},
		},
	}
}

// loadConf initializes [conf] from --conf. The default file may be absent, leaving an empty config
// for commands such as hash; an explicit file must exist and parse.
func loadConf(c *cli.Context) (err error) {
	path := c.String("conf")
	if _, err = os.Stat(path); err != nil {
		if !c.IsSet("conf") && os.IsNotExist(err) {
			return nil
		}
		return cli.Exit(fmt.Sprintf("config %s: %v", path, err), 1)
	}
	defer func() {
		if r := recover(); r != nil {
			err = cli.Exit(fmt.Sprintf("config %s: %v", path, r), 1)
		}
	}()
	conf.Initialize(path)
	return nil
}
