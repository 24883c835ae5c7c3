package main

import (
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/container"
	gohttp "github.com/km-arc/go-inject/framework/http"
	"github.com/km-arc/go-inject/framework/metadata"
	"github.com/km-arc/go-inject/framework/routing"
)

// Clock is autowired to systemClock through the binding candidates.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (*systemClock) Now() time.Time { return time.Now() }

// Greeter says hello in one language.
type Greeter interface {
	Language() string
	Greet(name string) string
}

// English is built by field injection; its prefix comes from the
// greeting_prefix marker.
type English struct {
	Prefix string `inject:"marker=greeting_prefix"`
}

func (g *English) Language() string { return "en" }
func (g *English) Greet(name string) string {
	return g.Prefix + ", " + name + "!"
}

// Spanish has no dependencies and is built by no-arg construction.
type Spanish struct{}

func (*Spanish) Language() string        { return "es" }
func (*Spanish) Greet(name string) string { return "¡Hola, " + name + "!" }

// GreetingService picks a greeter by language.
type GreetingService struct {
	clock    Clock
	greeters map[string]Greeter
}

// NewGreetingService is the injection constructor: greeters receives every
// Greeter singleton built so far.
func NewGreetingService(clock Clock, greeters []Greeter) (*GreetingService, error) {
	if len(greeters) == 0 {
		return nil, errors.New("no greeters available")
	}
	s := &GreetingService{clock: clock, greeters: make(map[string]Greeter, len(greeters))}
	for _, g := range greeters {
		s.greeters[g.Language()] = g
	}
	return s, nil
}

func (s *GreetingService) Greet(lang, name string) (string, time.Time, bool) {
	g, ok := s.greeters[lang]
	if !ok {
		return "", time.Time{}, false
	}
	return g.Greet(name), s.clock.Now(), true
}

func (s *GreetingService) Languages() []string {
	out := make([]string, 0, len(s.greeters))
	for l := range s.greeters {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Receipt is created fresh for every greeting.
type Receipt struct {
	Clock Clock `inject:""`

	Number int64
	At     time.Time
}

var receipts atomic.Int64

func (r *Receipt) PostConstruct() {
	r.Number = receipts.Add(1)
	r.At = r.Clock.Now()
}

// GreetingController serves the greeting endpoints.
type GreetingController struct {
	Service    *GreetingService         `inject:""`
	NewReceipt func() (*Receipt, error) `inject:""`
	Log        *zap.Logger              `inject:""`
	Container  *container.Container     `inject:""`
}

// Initialize runs once every field is set.
func (c *GreetingController) Initialize() error {
	if len(c.Service.Languages()) == 0 {
		return errors.New("greeting service has no languages")
	}
	c.Log.Debug("greeting controller ready", zap.Strings("languages", c.Service.Languages()))
	return nil
}

func (c *GreetingController) Routes(r *routing.Router) {
	r.Prefix("/greet", func(r *routing.Router) {
		r.Get("/", c.languages)
		r.Get("/{name}", c.greet)
	})
	r.Get("/singletons", c.singletons)
}

func (c *GreetingController) greet(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
	lang := req.Query("lang", "en")
	msg, at, ok := c.Service.Greet(lang, req.RouteParam("name"))
	if !ok {
		res.NotFound("unknown language " + lang)
		return
	}
	receipt, err := c.NewReceipt()
	if err != nil {
		res.Failure(err)
		return
	}
	res.Success(map[string]any{
		"message": msg,
		"at":      at.Format(time.RFC3339),
		"receipt": receipt.Number,
	})
}

func (c *GreetingController) languages(w http.ResponseWriter, _ *http.Request) {
	gohttp.NewResponse(w).Success(c.Service.Languages())
}

func (c *GreetingController) singletons(w http.ResponseWriter, _ *http.Request) {
	types := c.Container.Singletons()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = strings.TrimPrefix(t.String(), "*")
	}
	gohttp.NewResponse(w).Success(names)
}

// GreetingModule registers the greeting types.
type GreetingModule struct {
	container.BaseModule
}

func (m *GreetingModule) Register(c *container.Container) error {
	return c.Constructor(NewGreetingService, metadata.InjectionPoint(), metadata.ParamTags("", "all"))
}

// Boot builds the greeters up front so the service sees all of them.
func (m *GreetingModule) Boot(c *container.Container) error {
	if _, err := container.Resolve[*English](c); err != nil {
		return err
	}
	_, err := container.Resolve[*Spanish](c)
	return err
}
