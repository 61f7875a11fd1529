// Package transcodejob executes a single planned (file, target) unit of
// work: a lossy transcode, a lossless resample, or a plain include.
package transcodejob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/losslessforge/transcoder/internal/flacinfo"
	"github.com/losslessforge/transcoder/internal/planner"
	"github.com/losslessforge/transcoder/internal/process"
	"github.com/losslessforge/transcoder/internal/release"
	"github.com/losslessforge/transcoder/internal/tagging"
)

// Action names the step within a job that failed, so operators can
// diagnose a failure without parsing stderr.
type Action int

const (
	ActionSpawnDecode Action = iota
	ActionSpawnEncode
	ActionWaitDecode
	ActionWaitEncode
	ActionWriteTags
	ActionResample
	ActionCopyFlac
	ActionHardLinkFlac
)

func (a Action) String() string {
	switch a {
	case ActionSpawnDecode:
		return "spawn_decode"
	case ActionSpawnEncode:
		return "spawn_encode"
	case ActionWaitDecode:
		return "wait_decode"
	case ActionWaitEncode:
		return "wait_encode"
	case ActionWriteTags:
		return "write_tags"
	case ActionResample:
		return "resample"
	case ActionCopyFlac:
		return "copy_flac"
	case ActionHardLinkFlac:
		return "hard_link_flac"
	default:
		return "unknown"
	}
}

// Error wraps a job failure with the output path it was working on, so a
// failed release's logs show exactly which output never got produced.
type Error struct {
	Action     Action
	OutputPath string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcode %s: %s: %v", e.Action, e.OutputPath, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// BinaryPaths names the external programs a job may invoke. Empty fields
// fall back to looking the bare name up on PATH.
type BinaryPaths struct {
	Flac string
	Sox  string
	Lame string
}

func (b BinaryPaths) flac() string {
	if b.Flac == "" {
		return "flac"
	}
	return b.Flac
}

func (b BinaryPaths) sox() string {
	if b.Sox == "" {
		return "sox"
	}
	return b.Sox
}

func (b BinaryPaths) lame() string {
	if b.Lame == "" {
		return "lame"
	}
	return b.Lame
}

// Job executes one planner.Entry.
type Job struct {
	Entry   planner.Entry
	Runner  process.Interface
	Bins    BinaryPaths
	Repeatable bool // deterministic dither (sox -R); the zero value leaves it off
}

// ID identifies the job for jobrunner lifecycle events.
func (j *Job) ID() string { return j.Entry.OutputPath }

// Run executes the job's planned variant.
func (j *Job) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(j.Entry.OutputPath), 0755); err != nil {
		return &Error{Action: ActionSpawnEncode, OutputPath: j.Entry.OutputPath, Err: err}
	}

	switch j.Entry.Variant.Kind {
	case planner.VariantInclude:
		return j.runInclude()
	case planner.VariantResample:
		return j.runResample(ctx)
	case planner.VariantTranscode:
		return j.runTranscode(ctx)
	default:
		return &Error{OutputPath: j.Entry.OutputPath, Err: fmt.Errorf("transcodejob: unknown variant kind %v", j.Entry.Variant.Kind)}
	}
}

func (j *Job) runInclude() error {
	src := j.Entry.File.Path
	dst := j.Entry.OutputPath

	if j.Entry.Variant.HardLink {
		if err := os.Link(src, dst); err != nil {
			return &Error{Action: ActionHardLinkFlac, OutputPath: dst, Err: err}
		}
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return &Error{Action: ActionCopyFlac, OutputPath: dst, Err: err}
	}
	return nil
}

func (j *Job) runResample(ctx context.Context) error {
	args := soxResampleArgs(j.Entry.File.Path, j.Entry.OutputPath, j.Entry.Variant.ResampleRateHz, j.Repeatable)
	if _, err := j.Runner.Run(ctx, j.Bins.sox(), args...); err != nil {
		return &Error{Action: ActionResample, OutputPath: j.Entry.OutputPath, Err: err}
	}
	return j.writeTags()
}

func (j *Job) runTranscode(ctx context.Context) error {
	decode, err := j.decodeStage()
	if err != nil {
		return &Error{Action: ActionSpawnDecode, OutputPath: j.Entry.OutputPath, Err: err}
	}
	encode := j.encodeStage()

	if _, err := j.Runner.Pipe(ctx, decode, encode); err != nil {
		action := classifyPipeFailure(err, decode.Program)
		return &Error{Action: action, OutputPath: j.Entry.OutputPath, Err: err}
	}
	return j.writeTags()
}

// classifyPipeFailure assigns a decode/encode-specific action to a pipe
// failure reported by process.Runner. Pipe reports which program failed
// via the wrapped process.Error; the first stage is always the decoder.
func classifyPipeFailure(err error, decodeProgram string) Action {
	procErr, ok := err.(*process.Error)
	if !ok {
		return ActionWaitEncode
	}
	decoder := procErr.Program == decodeProgram
	switch {
	case procErr.Kind == process.KindSpawn && decoder:
		return ActionSpawnDecode
	case procErr.Kind == process.KindSpawn:
		return ActionSpawnEncode
	case decoder:
		return ActionWaitDecode
	default:
		return ActionWaitEncode
	}
}

func (j *Job) decodeStage() (process.Stage, error) {
	info, err := j.Entry.File.StreamInfo()
	if err != nil {
		return process.Stage{}, err
	}

	if !j.Entry.Variant.NeedsResample {
		return process.Stage{
			Program: j.Bins.flac(),
			Args:    []string{"-dcs", "--", j.Entry.File.Path},
		}, nil
	}

	args := soxDecodeResampleArgs(j.Entry.File.Path, j.Entry.Variant.ResampleRateHz, j.Repeatable, info)
	return process.Stage{Program: j.Bins.sox(), Args: args}, nil
}

func (j *Job) encodeStage() process.Stage {
	var args []string
	switch j.Entry.Variant.Target {
	case release.TargetMP3_320:
		args = []string{"-h", "-b", "320", "-", j.Entry.OutputPath}
	case release.TargetMP3_V0:
		args = []string{"-h", "-V0", "--vbr-new", "-", j.Entry.OutputPath}
	}
	return process.Stage{Program: j.Bins.lame(), Args: args}
}

func (j *Job) writeTags() error {
	tags, err := j.Entry.File.Tags()
	if err != nil {
		return &Error{Action: ActionWriteTags, OutputPath: j.Entry.OutputPath, Err: err}
	}
	fields := fieldsFromTags(tags)

	var writeErr error
	if j.Entry.Variant.Target == release.TargetFLAC {
		writeErr = tagging.WriteFLAC(j.Entry.OutputPath, fields)
	} else {
		writeErr = tagging.WriteMP3(j.Entry.OutputPath, fields)
	}
	if writeErr != nil {
		return &Error{Action: ActionWriteTags, OutputPath: j.Entry.OutputPath, Err: writeErr}
	}
	return nil
}

func fieldsFromTags(tags flacinfo.Tags) tagging.Fields {
	get := func(key string) string {
		v, _ := tags.Get(key)
		return v
	}
	composer := get("COMPOSER")
	disc := get("DISCNUMBER")
	return tagging.Fields{
		Artist:   get("ARTIST"),
		Album:    get("ALBUM"),
		Title:    get("TITLE"),
		Track:    get("TRACKNUMBER"),
		Disc:     disc,
		Composer: composer,
	}
}

// soxResampleArgs builds the args for Variant::Resample: a single sox
// invocation writing the output FLAC directly.
func soxResampleArgs(input, output string, rate uint32, repeatable bool) []string {
	args := []string{}
	if repeatable {
		args = append(args, "-R")
	}
	args = append(args, input, output, "rate", "-v", "-L", fmt.Sprintf("%d", rate), "dither")
	return args
}

// soxDecodeResampleArgs builds the decode-stage args for a Variant::Transcode
// whose source requires resampling before lossy encoding: decode+resample
// to a 16-bit WAV stream on stdout.
func soxDecodeResampleArgs(input string, rate uint32, repeatable bool, info flacinfo.StreamInfo) []string {
	args := []string{}
	if repeatable {
		args = append(args, "-R")
	}
	args = append(args, input, "-G", "-b", "16", "-t", "wav", "-", "rate", "-v", "-L", fmt.Sprintf("%d", rate), "dither")
	return args
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.ReadFrom(in); err != nil {
		return err
	}
	return out.Close()
}
