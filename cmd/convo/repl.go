package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leofalp/convo/core/conversation"
	"github.com/leofalp/convo/providers/ai"
)

const prompt = "> "

type repl struct {
	client *conversation.Client
	in     *bufio.Scanner
	out    io.Writer
	stream bool
}

func newREPL(client *conversation.Client, in io.Reader, out io.Writer, stream bool) *repl {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &repl{
		client: client,
		in:     scanner,
		out:    out,
		stream: stream,
	}
}

// run reads lines until EOF, /quit or ctx ends. Failed exchanges are printed
// and the loop continues.
func (r *repl) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines, scanErr := r.readLines(ctx)
	for {
		fmt.Fprint(r.out, prompt)

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case text, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				return <-scanErr
			}
			line = strings.TrimSpace(text)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := r.client.Reset(ctx); err != nil {
				r.printError(err)
				continue
			}
			fmt.Fprintln(r.out, "(conversation cleared)")
		case "/history":
			r.printHistory(ctx)
		default:
			r.exchange(ctx, line)
		}
	}
}

// readLines scans input on its own goroutine so an idle prompt still sees
// ctx end. scanErr receives the scanner's error once lines is closed.
func (r *repl) readLines(ctx context.Context) (lines <-chan string, scanErr <-chan error) {
	out := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		for r.in.Scan() {
			select {
			case out <- r.in.Text():
			case <-ctx.Done():
				errs <- nil
				return
			}
		}
		errs <- r.in.Err()
	}()

	return out, errs
}

func (r *repl) exchange(ctx context.Context, text string) {
	if !r.stream {
		reply, err := r.client.Send(ctx, text)
		if err != nil {
			r.printError(err)
			return
		}
		fmt.Fprintln(r.out, reply.Content)
		return
	}

	stream, err := r.client.Stream(ctx, text)
	if err != nil {
		r.printError(err)
		return
	}
	for fragment, err := range stream.Fragments() {
		if err != nil {
			fmt.Fprintln(r.out)
			r.printError(err)
			return
		}
		fmt.Fprint(r.out, fragment)
	}
	fmt.Fprintln(r.out)
}

func (r *repl) printHistory(ctx context.Context) {
	history, err := r.client.History(ctx)
	if err != nil {
		r.printError(err)
		return
	}
	if len(history) == 0 {
		fmt.Fprintln(r.out, "(empty)")
		return
	}
	for _, message := range history {
		fmt.Fprintf(r.out, "[%s] %s\n", message.Role, message.Content)
	}
}

func (r *repl) printError(err error) {
	fmt.Fprintf(r.out, "error (%s): %v\n", errorKind(err), err)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ai.ErrInvalidInput):
		return "invalid input"
	case errors.Is(err, ai.ErrRemoteRejected):
		return "rejected"
	case errors.Is(err, ai.ErrStreamInterrupted):
		return "interrupted"
	case errors.Is(err, ai.ErrRemoteUnavailable):
		return "unavailable"
	}
	return "internal"
}
