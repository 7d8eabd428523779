package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZenLiuCN/bitfields/bitfield"
	"github.com/ZenLiuCN/bitfields/breaker"
	"github.com/ZenLiuCN/bitfields/conf"
	"github.com/ZenLiuCN/bitfields/hasher"
	"github.com/ZenLiuCN/bitfields/htt"
	"github.com/ZenLiuCN/bitfields/modeler"
	"github.com/ZenLiuCN/bitfields/schema"
	"github.com/ZenLiuCN/bitfields/telemetry"
	"github.com/urfave/cli/v2"
)

func catalog() (*schema.Catalog, error) {
	return schema.Load(conf.GetConfig())
}

func descriptor(c *cli.Context) (*bitfield.Descriptor, error) {
	cat, err := catalog()
	if err != nil {
		return nil, err
	}
	name := c.String("model")
	d, ok := cat.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown model %q, known %v", name, cat.Names())
	}
	return d, nil
}

func override(c *cli.Context) ([]bitfield.QueryMode, error) {
	if !c.IsSet("mode") {
		return nil, nil
	}
	m, err := bitfield.ParseQueryMode(c.String("mode"))
	if err != nil {
		return nil, err
	}
	return []bitfield.QueryMode{m}, nil
}

func where(c *cli.Context) error {
	d, err := descriptor(c)
	if err != nil {
		return err
	}
	flags, err := ParseFlags(c.Args().Slice())
	if err != nil {
		return err
	}
	mode, err := override(c)
	if err != nil {
		return err
	}
	sql, err := d.Where(flags, mode...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, sql)
	return err
}

func update(c *cli.Context) error {
	d, err := descriptor(c)
	if err != nil {
		return err
	}
	flags, err := ParseFlags(c.Args().Slice())
	if err != nil {
		return err
	}
	sql, err := d.Set(flags)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, sql)
	return err
}

func bits(c *cli.Context) error {
	d, err := descriptor(c)
	if err != nil {
		return err
	}
	flags, err := ParseFlags(c.Args().Slice())
	if err != nil {
		return err
	}
	values, err := d.Registry().ColumnValues(flags)
	if err != nil {
		return err
	}
	for _, column := range d.Registry().Columns() {
		if v, ok := values[column]; ok {
			if _, err = fmt.Fprintf(c.App.Writer, "%s=%d\n", column, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func scopes(c *cli.Context) error {
	d, err := descriptor(c)
	if err != nil {
		return err
	}
	all, err := d.Scopes()
	if err != nil {
		return err
	}
	for _, s := range all {
		if _, err = fmt.Fprintf(c.App.Writer, "%s\t%s\n", s.Name, s.Condition); err != nil {
			return err
		}
	}
	return nil
}

// repository of the model over the database configured under
//
//	database{ driver: mysql, dsn: "...", configurer: [soft_removed, versioned], fields{ id: uid } }
//
// guarded when breaker{} exists.
func repository(c *cli.Context) (*modeler.Repository, func(), error) {
	d, err := descriptor(c)
	if err != nil {
		return nil, nil, err
	}
	cfg := conf.GetConfig()
	if !cfg.HasPath("database") {
		return nil, nil, errors.New("missing database config")
	}
	db := cfg.GetObject("database")
	config, err := ParseConfigurer(db.GetStringList("configurer"))
	if err != nil {
		return nil, nil, err
	}
	ex, err := modeler.Open(db)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := ex.Close(c.Context); err != nil {
			conf.Internal().Warn("close database ", err)
		}
	}
	var executor modeler.Executor = ex
	if cfg.HasPath("breaker") {
		executor = modeler.GuardedExecutor{Executor: ex, Breaker: breaker.FromConfig(cfg.GetObject("breaker"))}
	}
	repo := modeler.NewRepository(d, executor, config)
	if db.HasPath("fields") {
		repo.WithMaker(repo.Maker().WithFields(modeler.FieldNamesOf(db.GetObject("fields"))))
	}
	return repo, closer, nil
}

func count(c *cli.Context) error {
	repo, closer, err := repository(c)
	if err != nil {
		return err
	}
	defer closer()
	flags, err := ParseFlags(c.Args().Slice())
	if err != nil {
		return err
	}
	mode, err := override(c)
	if err != nil {
		return err
	}
	var n int64
	err = telemetry.Instrument("bitfields.count", func(ctx context.Context) (err error) {
		n, err = repo.Count(ctx, flags, mode...)
		return
	})(c.Context)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, n)
	return err
}

func apply(c *cli.Context) error {
	repo, closer, err := repository(c)
	if err != nil {
		return err
	}
	defer closer()
	set, err := ParseFlags(c.Args().Slice())
	if err != nil {
		return err
	}
	cond, err := ParseFlags(c.StringSlice("where"))
	if err != nil {
		return err
	}
	mode, err := override(c)
	if err != nil {
		return err
	}
	var n int64
	err = telemetry.Instrument("bitfields.apply", func(ctx context.Context) (err error) {
		n, err = repo.UpdateAll(ctx, set, cond, mode...)
		return
	})(c.Context)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "%d rows affected\n", n)
	return err
}

// serve the compile service as configured under http{}.
func serve(c *cli.Context) error {
	cfg := conf.GetConfig()
	shutdown, err := telemetry.Setup(c.Context, cfg)
	if err != nil {
		return err
	}
	defer func() {
		telemetry.Handle(shutdown(context.Background()))
	}()
	cat, err := catalog()
	if err != nil {
		return err
	}
	router := htt.NewService(cat).Router().WithTelemetry("bitfields")
	if cfg.HasPath("http.cors") {
		router = router.WithCORS(cfg.GetObject("http"))
	}
	if cfg.HasPath("jwt") {
		tk, err := htt.ConfigJwt(cfg)
		if err != nil {
			return err
		}
		router = htt.NewIssuer(tk, htt.ConfigClients(cfg)).Register(router).WithJWT(tk, "/metrics", "/token")
	}
	router = router.WithMetrics("/metrics")
	return router.Launch(c.Context, "bitfields", cfg.GetObject("http"), nil)
}

// hash a client secret for jwt.clients, optionally with a new totp key.
func hash(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("want exactly one secret")
	}
	var crypto hasher.SecretCrypto
	if c.Bool("argon2") {
		crypto = hasher.Argon2id(hasher.Argon2Argument{})
	} else {
		crypto = hasher.BCrypt(c.Int("cost"))
	}
	h, err := crypto.Hash(c.Args().First())
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(c.App.Writer, "secret: %q\n", h); err != nil {
		return err
	}
	if account := c.String("totp"); account != "" {
		key, err := hasher.TotpKey("bitfields", account)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.App.Writer, "totp: %q\n", key)
		return err
	}
	return nil
}
