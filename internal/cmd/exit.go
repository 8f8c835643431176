package cmd

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"go.uber.org/zap"

	"github.com/stacman/stacman"
	"github.com/stacman/stacman/internal/observability"
)

// ExitCodeFor picks the process exit code for an error returned by a
// command. Failures talking to the API map to ExitExternalServiceUnavailable.
func ExitCodeFor(err error) foundry.ExitCode {
	switch {
	case err == nil:
		return 0
	case stderrors.Is(err, stacman.ErrTransport),
		stderrors.Is(err, stacman.ErrMalformedResponse),
		stderrors.Is(err, stacman.ErrAPI):
		return foundry.ExitExternalServiceUnavailable
	case stderrors.Is(err, fs.ErrNotExist):
		return foundry.ExitFileNotFound
	default:
		return foundry.ExitFailure
	}
}

// ExitWithCode logs msg with the exit code's catalog metadata and exits.
// A nil logger writes to stderr instead.
func ExitWithCode(logger observability.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, known := foundry.GetExitCodeInfo(exitCode)
	envelope, _ := err.(*errors.ErrorEnvelope)
	if envelope != nil {
		if original, ok := envelope.Original.(error); ok && original != nil {
			err = original
		}
	}

	if logger == nil {
		writeExitStderr(msg, err, envelope)
		if known {
			fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		}
		os.Exit(int(exitCode))
	}

	fields := []zap.Field{zap.Int("exit_code", int(exitCode))}
	if known {
		fields = append(fields,
			zap.String("exit_name", info.Name),
			zap.String("exit_category", info.Category))
	}
	if envelope != nil {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("correlation_id", envelope.CorrelationID))
		if envelope.Context != nil {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.Error(msg, fields...)
	os.Exit(int(exitCode))
}

// ExitWithCodeStderr is ExitWithCode for failures before a logger exists.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	ExitWithCode(nil, exitCode, msg, err)
}

func writeExitStderr(msg string, err error, envelope *errors.ErrorEnvelope) {
	switch {
	case envelope != nil:
		fmt.Fprintf(os.Stderr, "FATAL: %s [%s]: %s\n", msg, envelope.Code, envelope.Message)
		if err != nil && err != error(envelope) {
			fmt.Fprintf(os.Stderr, "Cause: %v\n", err)
		}
	case err != nil:
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	default:
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
	}
}
