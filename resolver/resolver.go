package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/quietdns/vdns/log"
	"github.com/quietdns/vdns/model"
	"github.com/sirupsen/logrus"
)

// Resolver resolves a DNS request. Every resolver in a chain implements this.
type Resolver interface {
	Resolve(ctx context.Context, req *model.Request) (*model.Response, error)
	Configuration() []string
}

// ChainedResolver is a Resolver that forwards to a next Resolver when it
// doesn't produce a final answer itself.
type ChainedResolver interface {
	Resolver
	Next(n Resolver)
	GetNext() Resolver
}

// NextResolver holds the next resolver in a chain.
type NextResolver struct {
	next Resolver
}

func (r *NextResolver) Next(n Resolver) {
	r.next = n
}

func (r *NextResolver) GetNext() Resolver {
	return r.next
}

// configurable carries the config section a resolver was constructed with.
type configurable[T any] struct {
	cfg T
}

func withConfig[T any](cfg T) configurable[T] {
	return configurable[T]{cfg: cfg}
}

// typed carries the short resolver-type name used for logging and for
// Name(resolver).
type typed struct {
	resolverType string
}

func withType(resolverType string) typed {
	return typed{resolverType: resolverType}
}

// log returns a context carrying a logger prefixed with this resolver's
// type, along with the logger itself, following the same context-embedded
// logger convention as the rest of the module (see log.NewCtx).
func (t typed) log(ctx context.Context) (context.Context, *logrus.Entry) {
	logger := log.FromCtx(ctx).WithField("prefix", t.resolverType)

	return log.NewCtx(ctx, logger)
}

// logger returns a bare logger with the given prefix field, for resolvers
// that don't yet carry a request-scoped context (older, per-request-log
// style resolvers alongside the newer context-based ones in this package).
func logger(prefix string) *logrus.Entry {
	return logrus.WithField("prefix", prefix)
}

// withPrefix returns a copy of logger with the given prefix field set.
func withPrefix(logger *logrus.Entry, prefix string) *logrus.Entry {
	return logger.WithField("prefix", prefix)
}

// Chain links resolvers together in order, calling Next on each
// ChainedResolver so it forwards to the following resolver.
func Chain(resolvers ...Resolver) Resolver {
	for i, res := range resolvers {
		if i+1 < len(resolvers) {
			if cr, ok := res.(ChainedResolver); ok {
				cr.Next(resolvers[i+1])
			}
		}
	}

	return resolvers[0]
}

// Name returns the short type name of a resolver, derived from its Go type.
func Name(resolver Resolver) string {
	fullName := fmt.Sprintf("%T", resolver)

	parts := strings.Split(fullName, ".")

	return parts[len(parts)-1]
}

// GetFromChainWithType walks a resolver chain and returns the first
// resolver assignable to T, or nil if none is found.
func GetFromChainWithType[T Resolver](start Resolver) T {
	var zero T

	current := start

	for current != nil {
		if typed, ok := current.(T); ok {
			return typed
		}

		cr, ok := current.(ChainedResolver)
		if !ok {
			break
		}

		current = cr.GetNext()
	}

	return zero
}
