package htt

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ZenLiuCN/bitfields/bitfield"
	"github.com/ZenLiuCN/bitfields/conf"
	"github.com/ZenLiuCN/bitfields/schema"
	"github.com/ZenLiuCN/bitfields/telemetry"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type (
	FlagView struct {
		Name string `json:"name"`
		Bit  int64  `json:"bit"`
	}
	OptionsView struct {
		QueryMode bitfield.QueryMode `json:"query_mode"`
		Scopes    bool               `json:"scopes"`
		Accessors bool               `json:"accessors"`
	}
	ColumnView struct {
		Name    string      `json:"name"`
		Options OptionsView `json:"options"`
		Flags   []FlagView  `json:"flags"`
	}
	ModelView struct {
		Name    string       `json:"name"`
		Table   string       `json:"table"`
		Parent  string       `json:"parent,omitempty"`
		Columns []ColumnView `json:"columns"`
	}
	ScopeView struct {
		Name      string `json:"name"`
		Flag      string `json:"flag"`
		Value     bool   `json:"value"`
		Condition string `json:"condition"`
	}
	SqlView struct {
		Sql string `json:"sql"`
	}
	BitsView struct {
		Bits map[string]int64 `json:"bits"`
	}
)

func ModelOf(d *bitfield.Descriptor) ModelView {
	m := ModelView{Name: d.Name(), Table: d.Table(), Columns: []ColumnView{}}
	if p := d.Parent(); p != nil {
		m.Parent = p.Name()
	}
	r := d.Registry()
	for _, name := range r.Columns() {
		c, _ := r.Column(name)
		o := c.Options()
		v := ColumnView{
			Name:    name,
			Options: OptionsView{QueryMode: o.QueryMode, Scopes: o.Scopes, Accessors: o.Accessors},
		}
		for _, f := range c.Flags() {
			v.Flags = append(v.Flags, FlagView{Name: f.Name, Bit: f.Bit})
		}
		m.Columns = append(m.Columns, v)
	}
	return m
}

// Service compiles flag conditions of a [schema.Catalog] over HTTP.
type Service struct {
	catalog  *schema.Catalog
	tel      telemetry.Telemetry
	compiles metric.Int64Counter
	latency  metric.Float64Histogram
}

func NewService(catalog *schema.Catalog) *Service {
	tel := telemetry.NewTelemetry("bitfields/htt")
	return &Service{
		catalog:  catalog,
		tel:      tel,
		compiles: tel.Counter("bitfields.compiles", "compiled statements by model, operation and outcome"),
		latency:  tel.Histogram("bitfields.handle.duration", "handler latency", "ms"),
	}
}

// Register routes under /models.
func (s *Service) Register(r *mux.Router) {
	r.HandleFunc("/models", s.handle("models", s.models)).Methods(http.MethodGet)
	r.HandleFunc("/models/{model}", s.handle("model", s.model)).Methods(http.MethodGet)
	r.HandleFunc("/models/{model}/scopes", s.handle("scopes", s.scopes)).Methods(http.MethodGet)
	r.HandleFunc("/models/{model}/where", s.handle("where", s.where)).Methods(http.MethodPost)
	r.HandleFunc("/models/{model}/update", s.handle("update", s.update)).Methods(http.MethodPost)
	r.HandleFunc("/models/{model}/bits", s.handle("bits", s.bits)).Methods(http.MethodPost)
}

// Router a new router holding the service routes.
func (s *Service) Router() RouterConfigurer {
	r := mux.NewRouter()
	s.Register(r)
	return RouterConfigurerOf(r)
}

func (s *Service) handle(name string, h http.HandlerFunc) http.HandlerFunc {
	safe := JsonSafeHandleFunc(h, conf.Internal().Warnf)
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := s.tel.StartSpan("bitfields."+name, r.Context())
		defer span.End()
		safe(w, r.WithContext(ctx))
		s.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000, metric.WithAttributes(attribute.String("route", name)))
	}
}

func (s *Service) descriptor(r *http.Request) *bitfield.Descriptor {
	name := mux.Vars(r)["model"]
	d, ok := s.catalog.Get(name)
	if !ok {
		Fail(http.StatusNotFound, fmt.Errorf("unknown model %s", name))
	}
	return d
}

func (s *Service) count(ctx context.Context, d *bitfield.Descriptor, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.compiles.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", d.Name()),
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

func flagsOf(g Gabs) map[string]bool {
	flags, err := g.Flags("flags")
	if err != nil {
		Fail(http.StatusBadRequest, err)
	}
	return flags
}

func (s *Service) models(w http.ResponseWriter, r *http.Request) {
	WriteJson(w, map[string][]string{"models": s.catalog.Names()})
}

func (s *Service) model(w http.ResponseWriter, r *http.Request) {
	WriteJson(w, ModelOf(s.descriptor(r)))
}

func (s *Service) scopes(w http.ResponseWriter, r *http.Request) {
	scopes, err := s.descriptor(r).Scopes()
	Check(err)
	out := make([]ScopeView, 0, len(scopes))
	for _, sc := range scopes {
		out = append(out, ScopeView{Name: sc.Name, Flag: sc.Flag, Value: sc.Value, Condition: sc.Condition})
	}
	WriteJson(w, map[string][]ScopeView{"scopes": out})
}

func (s *Service) where(w http.ResponseWriter, r *http.Request) {
	d := s.descriptor(r)
	g := ReadGabs(r)
	flags := flagsOf(g)
	var override []bitfield.QueryMode
	if mode, _ := g.String("mode"); mode != "" {
		m, err := bitfield.ParseQueryMode(mode)
		Check(err)
		override = append(override, m)
	}
	sql, err := d.Where(flags, override...)
	s.count(r.Context(), d, "where", err)
	Check(err)
	WriteJson(w, SqlView{Sql: sql})
}

func (s *Service) update(w http.ResponseWriter, r *http.Request) {
	d := s.descriptor(r)
	sql, err := d.Set(flagsOf(ReadGabs(r)))
	s.count(r.Context(), d, "update", err)
	Check(err)
	WriteJson(w, SqlView{Sql: sql})
}

func (s *Service) bits(w http.ResponseWriter, r *http.Request) {
	d := s.descriptor(r)
	bits, err := d.Registry().ColumnValues(flagsOf(ReadGabs(r)))
	s.count(r.Context(), d, "bits", err)
	Check(err)
	WriteJson(w, BitsView{Bits: bits})
}
