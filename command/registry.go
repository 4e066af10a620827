package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cyberinferno/rftool/safemap"
)

// Handler executes a command. The returned values are appended to the command
// name to form the success payload.
type Handler func(ctx context.Context, args Args) ([]string, error)

// Command describes one entry of the command set.
type Command struct {
	Name string
	// Args are the kinds of the fixed arguments.
	Args []ArgKind
	// Variadic repeats the last kind in Args for any further tokens. MinArgs
	// is then the minimum argument count, len(Args) when zero.
	Variadic bool
	MinArgs  int
	// Raw sends the first returned value as the whole response, without the
	// command name.
	Raw     bool
	Handler Handler
}

// parse checks the argument count and converts every token.
func (c *Command) parse(tokens []string) (Args, error) {
	if c.Variadic {
		least := c.MinArgs
		if least == 0 {
			least = len(c.Args)
		}
		if len(tokens) < least {
			return Args{}, errArgCount
		}
	} else if len(tokens) != len(c.Args) {
		return Args{}, errArgCount
	}

	args := Args{values: make([]value, len(tokens))}
	for i, tok := range tokens {
		kind := c.Args[min(i, len(c.Args)-1)]
		v, err := parseArg(kind, tok)
		if err != nil {
			return Args{}, err
		}
		args.values[i] = v
	}

	return args, nil
}

var (
	errArgCount = errors.New("wrong number of arguments")

	// ErrDuplicateCommand is returned when a name is registered twice.
	ErrDuplicateCommand = errors.New("command already registered")
)

// Registry maps case-insensitive command names to commands.
type Registry struct {
	commands *safemap.SafeMap[string, *Command]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: safemap.NewSafeMap[string, *Command]()}
}

// Register adds cmd.
//
// Parameters:
//   - cmd: The command; Name and Handler must be set
//
// Returns:
//   - ErrDuplicateCommand if the name is taken, or an error for an incomplete
//     command
func (r *Registry) Register(cmd Command) error {
	if cmd.Name == "" || cmd.Handler == nil {
		return fmt.Errorf("command %q: name and handler are required", cmd.Name)
	}
	if cmd.Variadic && len(cmd.Args) == 0 {
		return fmt.Errorf("command %q: variadic command needs an argument kind", cmd.Name)
	}

	key := strings.ToLower(cmd.Name)
	if _, loaded := r.commands.LoadOrStore(key, &cmd); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, cmd.Name)
	}

	return nil
}

// Lookup finds a command by name, ignoring case.
func (r *Registry) Lookup(name string) (*Command, bool) {
	return r.commands.Load(strings.ToLower(name))
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.commands.Len())
	r.commands.Range(func(_ string, c *Command) bool {
		names = append(names, c.Name)
		return true
	})
	sort.Strings(names)
	return names
}
