package lua

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

// acceptsFunc is the global a predicate script must define.
const acceptsFunc = "accepts"

// Predicate decides URI acceptance by calling a script's
// accepts(uri, path, ext) function.
type Predicate struct {
	name  string
	state *State
	log   zerolog.Logger
}

// LoadPredicate loads a predicate script from a file.
func LoadPredicate(ctx context.Context, file string, opts ...StateOption) (*Predicate, error) {
	return newPredicate(file, opts, func(s *State) error { return s.DoFile(ctx, file) })
}

// NewPredicate loads a predicate script from source. name identifies the
// script in errors and logs.
func NewPredicate(ctx context.Context, name, code string, opts ...StateOption) (*Predicate, error) {
	return newPredicate(name, opts, func(s *State) error { return s.DoString(ctx, code) })
}

func newPredicate(name string, opts []StateOption, load func(*State) error) (*Predicate, error) {
	s := NewState(opts...)
	if err := load(s); err != nil {
		_ = s.Close()
		return nil, &ScriptError{Script: name, Op: "load", Err: err}
	}
	if !s.HasFunction(acceptsFunc) {
		_ = s.Close()
		return nil, &ScriptError{Script: name, Op: "load", Err: ErrNoAccepts}
	}
	return &Predicate{name: name, state: s, log: s.log}, nil
}

// Name returns the script name.
func (p *Predicate) Name() string {
	return p.name
}

// Eval calls accepts for u. The result is the truthiness of the first
// return value.
func (p *Predicate) Eval(ctx context.Context, u *url.URL) (bool, error) {
	ext := strings.ToLower(path.Ext(u.Path))
	ret, err := p.state.Call(ctx, acceptsFunc,
		lua.LString(u.String()), lua.LString(u.Path), lua.LString(ext))
	if err != nil {
		return false, &ScriptError{Script: p.name, Op: "call", Err: err}
	}
	if len(ret) == 0 {
		return false, nil
	}
	return lua.LVAsBool(ret[0]), nil
}

// Accepts reports whether the script accepts u. Script failures reject.
// Its signature matches opener.Predicate.
func (p *Predicate) Accepts(u *url.URL) bool {
	ok, err := p.Eval(context.Background(), u)
	if err != nil {
		p.log.Warn().Err(err).Str("uri", u.String()).Msg("predicate script failed")
		return false
	}
	return ok
}

// Close releases the script's state.
func (p *Predicate) Close() error {
	return p.state.Close()
}
