// Package command parses command channel lines and dispatches them to the
// hardware collaborators. Every line yields exactly one Response.
package command

import (
	"context"
	"errors"
	"strings"

	"github.com/cyberinferno/rftool/logger"
	"github.com/cyberinferno/rftool/metrics"
	"github.com/cyberinferno/rftool/status"
	"github.com/cyberinferno/rftool/utils"
)

// unknownCommand labels lines whose name is not registered, keeping metric
// label values bounded.
const unknownCommand = "unknown"

// Response is the outcome of one command line.
type Response struct {
	// Text is sent to the client: the success payload, the error message for
	// Status, or status.DisconnectSentinel.
	Text   string
	Status status.Code
	// Command is the canonical name of the matched command.
	Command string
}

// Disconnect reports whether the response asks for session teardown.
func (r Response) Disconnect() bool {
	return r.Text == status.DisconnectSentinel
}

// Processor turns lines into responses.
type Processor struct {
	registry *Registry
	log      logger.Logger
	recorder metrics.Recorder
}

// NewProcessor creates a processor over registry.
//
// Parameters:
//   - registry: The command set
//   - log: Logger
//   - recorder: Receives one CommandProcessed per line; may be nil
//
// Returns:
//   - The processor
func NewProcessor(registry *Registry, log logger.Logger, recorder metrics.Recorder) *Processor {
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &Processor{
		registry: registry,
		log:      log.With(logger.Field{Key: "component", Value: "command"}),
		recorder: recorder,
	}
}

// Process tokenizes line, validates it against the registry and runs the
// handler. It never fails: problems are reported through Response.Status with
// the matching error text.
//
// Parameters:
//   - ctx: Passed to the handler
//   - line: One command line, with or without its line ending
//
// Returns:
//   - The response to send
func (p *Processor) Process(ctx context.Context, line string) Response {
	resp := p.process(ctx, line)
	p.recorder.CommandProcessed(resp.Command, resp.Status)
	return resp
}

func (p *Processor) process(ctx context.Context, line string) Response {
	tokens := strings.Fields(utils.TrimLineEnding(line))
	if len(tokens) == 0 {
		return failure(unknownCommand, status.CommandUndefined)
	}

	cmd, ok := p.registry.Lookup(tokens[0])
	if !ok {
		p.log.Debug("undefined command", logger.Field{Key: "command", Value: tokens[0]})
		return failure(unknownCommand, status.CommandUndefined)
	}

	args, err := cmd.parse(tokens[1:])
	if err != nil {
		p.log.Debug("rejected arguments",
			logger.Field{Key: "command", Value: cmd.Name},
			logger.Field{Key: "error", Value: err.Error()},
		)
		return failure(cmd.Name, status.ArgumentCountError)
	}

	values, err := cmd.Handler(ctx, args)
	if err != nil {
		p.log.Warn("command failed",
			logger.Field{Key: "command", Value: cmd.Name},
			logger.Field{Key: "error", Value: err.Error()},
		)
		return failure(cmd.Name, status.ExecutionError)
	}

	if cmd.Raw {
		if len(values) == 0 {
			return failure(cmd.Name, status.ExecutionError)
		}
		return Response{Text: values[0], Status: status.Success, Command: cmd.Name}
	}

	text := cmd.Name
	if len(values) > 0 {
		text += " " + strings.Join(values, " ")
	}

	return Response{Text: text, Status: status.Success, Command: cmd.Name}
}

func failure(name string, code status.Code) Response {
	return Response{Text: status.Message(code), Status: code, Command: name}
}

// ErrUnavailable is returned by handlers whose collaborator is not configured.
var ErrUnavailable = errors.New("collaborator not available")
