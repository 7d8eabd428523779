package htt

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ZenLiuCN/bitfields/conf"
	"github.com/ZenLiuCN/bitfields/telemetry"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
)

type RouterConfigurer struct {
	*mux.Router
}

func RouterConfigurerOf(r *mux.Router) RouterConfigurer {
	return RouterConfigurer{r}
}
func (c RouterConfigurer) Get() *mux.Router {
	return c.Router
}

// WithTelemetry tracer provider is injected, not need in opts
func (c RouterConfigurer) WithTelemetry(service string, opts ...otelmux.Option) RouterConfigurer {
	opts = append(opts, otelmux.WithTracerProvider(otel.GetTracerProvider()))
	c.Use(otelmux.Middleware(service, opts...))
	return c
}

// WithMetrics mount the Prometheus exposition at path.
func (c RouterConfigurer) WithMetrics(path string) RouterConfigurer {
	c.Handle(path, telemetry.MetricsHandler()).Methods(http.MethodGet).Name("metrics")
	return c
}

// WithJWT guards every route with t, except the public paths and their sub paths.
func (c RouterConfigurer) WithJWT(t *Tokenizer, public ...string) RouterConfigurer {
	c.Use(func(next http.Handler) http.Handler {
		guarded := t.Middleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range public {
				if r.URL.Path == p || strings.HasPrefix(r.URL.Path, strings.TrimSuffix(p, "/")+"/") {
					next.ServeHTTP(w, r)
					return
				}
			}
			guarded.ServeHTTP(w, r)
		})
	})
	return c
}

func join(values []string, def string) string {
	if len(values) == 0 {
		return def
	}
	return strings.Join(values, ",")
}

func parseCORS(cfg conf.Config) (h, o, a string) {
	headers := cfg.GetStringList("cors.headers")
	if cfg.GetBoolean("cors.authorization", false) {
		headers = append(headers, "Authorization")
	}
	h = join(headers, "*")
	if cfg.GetBoolean("cors.credentials", false) {
		a = "true"
	}
	o = join(cfg.GetStringList("cors.origin"), "*")
	return
}

// WithCORS reads
//
//	cors{ headers: [Content-Type], authorization: true, credentials: false, origin: ["https://example.com"] }
func (c RouterConfigurer) WithCORS(cfg conf.Config) RouterConfigurer {
	if cfg == nil {
		return c
	}
	c.Use(mux.CORSMethodMiddleware(c.Router))
	h, o, a := parseCORS(cfg)
	c.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if a != "" {
				w.Header().Set("Access-Control-Allow-Credentials", a)
			}
			w.Header().Set("Access-Control-Allow-Headers", h)
			w.Header().Set("Access-Control-Expose-Headers", h)
			w.Header().Set("Access-Control-Allow-Origin", o)
			if req.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	return c
}

// Launch see [StartServer]
func (c RouterConfigurer) Launch(ctx context.Context, name string, cfg conf.Config, configure func(server *http.Server)) error {
	return StartServer(ctx, name, c.Router, cfg, configure)
}

/*
StartServer with handler and [conf.Config]. This function will block until ctx is done or
SIGINT/SIGTERM arrives, then shuts the [http.Server] down within shutdownTimeout.

HOCON sample:

	{
	address: "0.0.0.0:8080" # default address to listen with
	writeTimeout: 30s
	readTimeout: 30s
	idleTimeout: 60s
	shutdownTimeout: 5s
	keepAlive: false
	}
*/
func StartServer(ctx context.Context, name string, h http.Handler, c conf.Config, configure func(server *http.Server)) error {
	if c == nil {
		c = conf.Empty()
	}
	server := new(http.Server)
	server.Addr = conf.OrElse("address", "0.0.0.0:8080", c, c.GetString)
	server.Handler = h
	server.WriteTimeout = conf.OrElse("writeTimeout", time.Second*30, c, c.GetTimeDuration)
	server.ReadTimeout = conf.OrElse("readTimeout", time.Second*30, c, c.GetTimeDuration)
	server.IdleTimeout = conf.OrElse("idleTimeout", time.Second*60, c, c.GetTimeDuration)
	server.ErrorLog = log.Default()
	server.SetKeepAlivesEnabled(c.GetBoolean("keepAlive", false))
	if configure != nil {
		configure(server)
	}
	timeout := conf.OrElse("shutdownTimeout", time.Second*5, c, c.GetTimeDuration)
	i := conf.Internal()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	failed := make(chan error, 1)
	go func() {
		i.Infof("http %s server listen %s", name, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
		close(failed)
	}()
	select {
	case err := <-failed:
		if err != nil {
			i.Errorf("http %s server error %+v", name, err)
			return err
		}
		return nil
	case <-ctx.Done():
	}
	sc, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(sc); err != nil {
		i.Errorf("http %s server shutting down %+v", name, err)
		return err
	}
	i.Infof("http %s server shutdown success", name)
	return nil
}
