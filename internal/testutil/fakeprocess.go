package testutil

import (
	"context"
	"fmt"

	"github.com/losslessforge/transcoder/internal/process"
)

// FakeResult scripts a single fake invocation's outcome.
type FakeResult struct {
	Stdout []byte
	Err    error
}

// FakeRunner is a scriptable stand-in for process.Interface, so
// transcodejob/auxjob/spectrogram tests never need a real flac, sox, lame,
// imdl, or convert binary on the test machine. Results are keyed by
// program name; Handlers, when set for a program, takes priority and lets
// a test inspect the exact args it was called with.
type FakeRunner struct {
	Results  map[string]FakeResult
	Handlers map[string]func(ctx context.Context, args ...string) (*process.Output, error)

	Calls []FakeCall
}

// FakeCall records one invocation made through Run, RunWithStdin, or Pipe.
type FakeCall struct {
	Program string
	Args    []string
	Stdin   []byte
}

// NewFakeRunner returns an empty FakeRunner; every call fails until
// scripted via Results or Handlers.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Results:  map[string]FakeResult{},
		Handlers: map[string]func(ctx context.Context, args ...string) (*process.Output, error){},
	}
}

var _ process.Interface = (*FakeRunner)(nil)

// Run implements process.Interface.
func (f *FakeRunner) Run(ctx context.Context, program string, args ...string) (*process.Output, error) {
	f.Calls = append(f.Calls, FakeCall{Program: program, Args: args})

	if h, ok := f.Handlers[program]; ok {
		return h(ctx, args...)
	}
	if r, ok := f.Results[program]; ok {
		if r.Err != nil {
			return nil, r.Err
		}
		return &process.Output{Stdout: r.Stdout}, nil
	}
	return nil, &process.Error{Kind: process.KindSpawn, Program: program, Err: fmt.Errorf("testutil: no fake result scripted for %q", program)}
}

// RunWithStdin implements process.Interface.
func (f *FakeRunner) RunWithStdin(ctx context.Context, stdin []byte, program string, args ...string) (*process.Output, error) {
	f.Calls = append(f.Calls, FakeCall{Program: program, Args: args, Stdin: stdin})

	if h, ok := f.Handlers[program]; ok {
		return h(ctx, args...)
	}
	if r, ok := f.Results[program]; ok {
		if r.Err != nil {
			return nil, r.Err
		}
		return &process.Output{Stdout: r.Stdout}, nil
	}
	return nil, &process.Error{Kind: process.KindSpawn, Program: program, Err: fmt.Errorf("testutil: no fake result scripted for %q", program)}
}

// Pipe implements process.Interface by running each stage's Run in turn
// and threading the final stage's stdout through as the pipe's result.
// Fake stages don't actually consume each other's stdout as stdin, since
// fakes don't spawn real processes to connect pipes between.
func (f *FakeRunner) Pipe(ctx context.Context, stages ...process.Stage) ([]byte, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("testutil: pipe requires at least one stage")
	}
	var out *process.Output
	for _, stage := range stages {
		o, err := f.Run(ctx, stage.Program, stage.Args...)
		if err != nil {
			return nil, err
		}
		out = o
	}
	return out.Stdout, nil
}
