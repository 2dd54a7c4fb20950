package polyglot

import (
	"reflect"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funvibe/polyglot/pkg/hostaccess"
)

// Context owns the host access policy and the marshaller used to move Go
// values into the value model.
type Context struct {
	id         uuid.UUID
	policy     *hostaccess.Policy
	logger     zerolog.Logger
	marshaller *Marshaller
}

// Option configures a Context.
type Option func(*Context)

// WithHostAccess sets the host access policy. The default is
// hostaccess.Explicit.
func WithHostAccess(p *hostaccess.Policy) Option {
	return func(c *Context) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Context) {
		c.logger = l
	}
}

// NewContext creates a context.
func NewContext(opts ...Option) *Context {
	c := &Context{
		id:     uuid.New(),
		policy: hostaccess.Explicit,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("context", c.id.String()).Logger()
	c.marshaller = NewMarshaller(c)
	return c
}

func (c *Context) ID() uuid.UUID              { return c.id }
func (c *Context) Policy() *hostaccess.Policy { return c.policy }
func (c *Context) Logger() *zerolog.Logger    { return &c.logger }
func (c *Context) Marshaller() *Marshaller    { return c.marshaller }

// AsValue wraps x. A *Value is returned unchanged; a *Foreign is unwrapped
// back to the object it views; everything else goes through the marshaller.
func (c *Context) AsValue(x any) (*Value, error) {
	switch v := x.(type) {
	case *Value:
		return v, nil
	case *Foreign:
		return &Value{ctx: c, obj: v.obj}, nil
	}
	obj, err := c.marshaller.ToObject(x)
	if err != nil {
		return nil, err
	}
	return &Value{ctx: c, obj: obj}, nil
}

// Wrap returns a Value for an existing object.
func (c *Context) Wrap(obj Object) *Value {
	if obj == nil {
		obj = &Nil{}
	}
	return &Value{ctx: c, obj: obj}
}

// HostType exposes t as an instantiable host type. ctor is an optional Go
// function returning a T or *T; without it, instantiation with no arguments
// yields a new zero *T. Instantiation is gated by the constructor member of
// t under the context policy.
func (c *Context) HostType(t reflect.Type, ctor any) (*Value, error) {
	ht, err := c.marshaller.hostType(t, ctor)
	if err != nil {
		return nil, err
	}
	return &Value{ctx: c, obj: ht}, nil
}
