/*
Package runner drives a learning session from an interactive terminal or a
JSON-Lines pipe.

The Runner renders the session view through an IOHandler, reads one command
and applies it: Enter to move on, an option number to answer, h for a hint,
q to quit. Failed service calls are reported and can be retried; exhausted
input stops the session.

# Usage

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	summary, err := r.Run(ctx, sess)
*/
package runner
