// {{{ Copyright (c) Paul R. Tagliamonte <paul@k3xec.com>, 2020-2024
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

// Command iqproc streams I/Q samples from a file or synthetic source
// through the pipeline in hz.tools/iqproc/pipeline, writing the result to
// a file or stdout. Flag parsing and preset loading live entirely in this
// file; the core package never imports pflag or yaml.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"hz.tools/iqproc"
	"hz.tools/iqproc/pipeline"
	"hz.tools/iqproc/source"
	"hz.tools/rf"
)

// preset is the on-disk shape a YAML preset file loads into. Only fields
// left at their flag.Changed == false zero value are overwritten by a
// loaded preset, so an explicit flag always wins over a preset's value.
type preset struct {
	InputRate          uint32            `yaml:"input_rate"`
	OutputRate         uint32            `yaml:"output_rate"`
	NoResample         bool              `yaml:"no_resample"`
	InputFormat        string            `yaml:"input_format"`
	OutputFormat       string            `yaml:"output_format"`
	OutputContainer    string            `yaml:"output_container"`
	Gain               float32           `yaml:"gain"`
	FreqShift          float64           `yaml:"freq_shift_hz"`
	ShiftAfterResample bool              `yaml:"shift_after_resample"`
	EnableDCBlock      bool              `yaml:"enable_dc_block"`
	EnableIQCorrection bool              `yaml:"enable_iq_correction"`
	Filters            []string          `yaml:"filters"`
	ForceFFTFilter     bool              `yaml:"force_fft_filter"`
	FilterBlockSize    int               `yaml:"filter_block_size"`
	ResamplerStopband  float64           `yaml:"resampler_stopband_db"`
	OutputToStdout     bool              `yaml:"output_to_stdout"`
	OutputPath         string            `yaml:"output_path"`
	SourceName         string            `yaml:"source"`
	SourceOptions      map[string]string `yaml:"source_options"`
	ProgressInterval   float64           `yaml:"progress_interval"`
}

func loadPreset(path string) (preset, error) {
	var p preset
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("iqproc: reading preset %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("iqproc: parsing preset %s: %w", path, err)
	}
	return p, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "iqproc:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("iqproc", pflag.ContinueOnError)

	presetPath := fs.String("preset", "", "YAML preset file providing defaults for any flag not explicitly set")
	inputRate := fs.Uint32("input-rate", 0, "input sample rate, samples/sec")
	outputRate := fs.Uint32("output-rate", 0, "output sample rate, samples/sec")
	noResample := fs.Bool("no-resample", false, "force resampler passthrough regardless of input/output rate")
	inputFormat := fs.String("input-format", "cf32", "input sample format (see SampleFormat.String)")
	outputFormat := fs.String("output-format", "cf32", "output sample format")
	outputContainer := fs.String("output-container", "raw", "output file container: raw, wav, rf64wav")
	gain := fs.Float32("gain", 1.0, "linear gain applied before the DC blocker")
	freqShift := fs.Float64("freq-shift", 0, "NCO shift frequency, Hz")
	shiftAfterResample := fs.Bool("shift-after-resample", false, "apply freq-shift after resampling instead of before")
	enableDCBlock := fs.Bool("enable-dc-block", false, "enable the single-pole DC blocker")
	enableIQCorrection := fs.Bool("enable-iq-correction", false, "enable I/Q imbalance correction and its background estimator")
	filters := fs.StringArray("filter", nil, `filter chain stage, "kind:freq[:bandwidth]" where kind is lowpass, highpass, bandpass or bandstop`)
	forceFFTFilter := fs.Bool("force-fft-filter", false, "force FFT overlap-save filtering even for a real-symmetric chain")
	filterBlockSize := fs.Int("filter-block-size", 0, "override the FFT filter block size (must be a power of two)")
	resamplerStopband := fs.Float64("resampler-stopband-db", iqproc.ResamplerStopbandDefaultDB, "stopband attenuation, dB (stored in the config; the fixed 63-tap resampler does not read it)")
	toStdout := fs.Bool("stdout", false, "write output samples to stdout instead of a file")
	outputPath := fs.String("output", "", "output file path (file-output mode)")
	sourceName := fs.String("source", "file", `input source: "file" or "tone"`)
	sourceOptions := fs.StringToString("source-opt", nil, `per-source option, repeatable, "key=value" (file: path[, wav]; tone: freq)`)
	progressInterval := fs.Float64("progress-interval", 0, "seconds between progress callbacks; 0 uses the pipeline default")
	logLevel := fs.String("log-level", "info", "debug, info, warn, error, or fatal")

	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := log.New(os.Stderr)
	if lvl, err := log.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(lvl)
	}

	if *presetPath != "" {
		p, err := loadPreset(*presetPath)
		if err != nil {
			return err
		}
		applyPreset(fs, p, inputRate, outputRate, noResample, inputFormat, outputFormat,
			outputContainer, gain, freqShift, shiftAfterResample, enableDCBlock,
			enableIQCorrection, filters, forceFFTFilter, filterBlockSize, resamplerStopband,
			toStdout, outputPath, sourceName, sourceOptions, progressInterval)
	}

	inFmt, err := iqproc.ParseSampleFormat(*inputFormat)
	if err != nil {
		return err
	}
	outFmt, err := iqproc.ParseSampleFormat(*outputFormat)
	if err != nil {
		return err
	}
	container, err := parseContainer(*outputContainer)
	if err != nil {
		return err
	}
	filterSpecs, err := parseFilters(*filters)
	if err != nil {
		return err
	}

	cfg := iqproc.AppConfig{
		InputRate:           *inputRate,
		OutputRate:          *outputRate,
		NoResample:          *noResample,
		InputFormat:         inFmt,
		OutputFormat:        outFmt,
		OutputContainer:     container,
		Gain:                *gain,
		FreqShift:           rf.Hz(*freqShift),
		ShiftAfterResample:  *shiftAfterResample,
		EnableDCBlock:       *enableDCBlock,
		EnableIQCorrection:  *enableIQCorrection,
		Filters:             filterSpecs,
		ForceFFTFilter:      *forceFFTFilter,
		FilterBlockSize:     *filterBlockSize,
		ResamplerStopbandDB: *resamplerStopband,
		OutputToStdout:      *toStdout,
		OutputPath:          *outputPath,
		SourceName:          *sourceName,
		SourceOptions:       *sourceOptions,
		ProgressInterval:    *progressInterval,
		Progress: func(s iqproc.ProgressSnapshot) {
			logger.Info("progress",
				"frames_read", s.TotalFramesRead,
				"frames_written", s.TotalOutputFrames,
				"dropped", s.ChunksDropped,
				"elapsed_s", s.Elapsed,
			)
		},
	}

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}
	sink, err := buildSink(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return pipeline.Run(ctx, cfg, src, sink, logger)
}

// applyPreset fills any flag the user did not explicitly set from p.
func applyPreset(fs *pflag.FlagSet, p preset, inputRate, outputRate *uint32, noResample *bool,
	inputFormat, outputFormat, outputContainer *string, gain *float32, freqShift *float64,
	shiftAfterResample, enableDCBlock, enableIQCorrection *bool, filters *[]string,
	forceFFTFilter *bool, filterBlockSize *int, resamplerStopband *float64, toStdout *bool,
	outputPath, sourceName *string, sourceOptions *map[string]string, progressInterval *float64) {

	changed := func(name string) bool { return fs.Changed(name) }

	if !changed("input-rate") && p.InputRate != 0 {
		*inputRate = p.InputRate
	}
	if !changed("output-rate") && p.OutputRate != 0 {
		*outputRate = p.OutputRate
	}
	if !changed("no-resample") && p.NoResample {
		*noResample = p.NoResample
	}
	if !changed("input-format") && p.InputFormat != "" {
		*inputFormat = p.InputFormat
	}
	if !changed("output-format") && p.OutputFormat != "" {
		*outputFormat = p.OutputFormat
	}
	if !changed("output-container") && p.OutputContainer != "" {
		*outputContainer = p.OutputContainer
	}
	if !changed("gain") && p.Gain != 0 {
		*gain = p.Gain
	}
	if !changed("freq-shift") && p.FreqShift != 0 {
		*freqShift = p.FreqShift
	}
	if !changed("shift-after-resample") && p.ShiftAfterResample {
		*shiftAfterResample = p.ShiftAfterResample
	}
	if !changed("enable-dc-block") && p.EnableDCBlock {
		*enableDCBlock = p.EnableDCBlock
	}
	if !changed("enable-iq-correction") && p.EnableIQCorrection {
		*enableIQCorrection = p.EnableIQCorrection
	}
	if !changed("filter") && len(p.Filters) > 0 {
		*filters = p.Filters
	}
	if !changed("force-fft-filter") && p.ForceFFTFilter {
		*forceFFTFilter = p.ForceFFTFilter
	}
	if !changed("filter-block-size") && p.FilterBlockSize != 0 {
		*filterBlockSize = p.FilterBlockSize
	}
	if !changed("resampler-stopband-db") && p.ResamplerStopband != 0 {
		*resamplerStopband = p.ResamplerStopband
	}
	if !changed("stdout") && p.OutputToStdout {
		*toStdout = p.OutputToStdout
	}
	if !changed("output") && p.OutputPath != "" {
		*outputPath = p.OutputPath
	}
	if !changed("source") && p.SourceName != "" {
		*sourceName = p.SourceName
	}
	if !changed("source-opt") && len(p.SourceOptions) > 0 {
		*sourceOptions = p.SourceOptions
	}
	if !changed("progress-interval") && p.ProgressInterval != 0 {
		*progressInterval = p.ProgressInterval
	}
}

func parseContainer(s string) (iqproc.ContainerFormat, error) {
	switch strings.ToLower(s) {
	case "raw", "":
		return iqproc.ContainerRaw, nil
	case "wav":
		return iqproc.ContainerWav, nil
	case "rf64wav", "rf64":
		return iqproc.ContainerRF64Wav, nil
	default:
		return 0, fmt.Errorf("iqproc: unknown output container %q", s)
	}
}

// parseFilters turns each "kind:freq[:bandwidth]" flag value into a
// FilterSpec, per SourceOptions' "opaque string parameters" convention.
func parseFilters(specs []string) ([]iqproc.FilterSpec, error) {
	out := make([]iqproc.FilterSpec, 0, len(specs))
	for _, s := range specs {
		parts := strings.Split(s, ":")
		if len(parts) < 2 {
			return nil, fmt.Errorf("iqproc: malformed --filter %q, want kind:freq[:bandwidth]", s)
		}
		var kind iqproc.FilterKind
		switch strings.ToLower(parts[0]) {
		case "lowpass":
			kind = iqproc.FilterLowpass
		case "highpass":
			kind = iqproc.FilterHighpass
		case "bandpass":
			kind = iqproc.FilterBandpass
		case "bandstop":
			kind = iqproc.FilterBandstop
		default:
			return nil, fmt.Errorf("iqproc: unknown filter kind %q", parts[0])
		}
		freq, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("iqproc: malformed --filter frequency in %q: %w", s, err)
		}
		var bandwidth float64
		if len(parts) > 2 {
			bandwidth, err = strconv.ParseFloat(parts[2], 64)
			if err != nil {
				return nil, fmt.Errorf("iqproc: malformed --filter bandwidth in %q: %w", s, err)
			}
		}
		out = append(out, iqproc.FilterSpec{Kind: kind, Freq: rf.Hz(freq), Bandwidth: rf.Hz(bandwidth)})
	}
	return out, nil
}

// buildSource constructs the concrete InputSource named by
// cfg.SourceName, per spec.md §6's "construction is a collaborator
// concern" note.
func buildSource(cfg iqproc.AppConfig) (iqproc.InputSource, error) {
	switch cfg.SourceName {
	case "file", "":
		path := cfg.SourceOptions["path"]
		if path == "" {
			return nil, fmt.Errorf("iqproc: source=file requires --source-opt path=<file>")
		}
		wav := cfg.SourceOptions["wav"] == "true"
		return source.NewFileSource(path, cfg.InputFormat, cfg.InputRate, wav), nil
	case "tone":
		freqStr := cfg.SourceOptions["freq"]
		freq, err := strconv.ParseFloat(freqStr, 64)
		if err != nil {
			return nil, fmt.Errorf("iqproc: source=tone requires --source-opt freq=<hz>: %w", err)
		}
		return source.NewToneSource(rf.Hz(freq), cfg.InputRate), nil
	default:
		return nil, fmt.Errorf("iqproc: unknown source %q", cfg.SourceName)
	}
}

// buildSink constructs the FileWriter for file-output mode; stdout mode
// never touches it.
func buildSink(cfg iqproc.AppConfig) (iqproc.FileWriter, error) {
	if cfg.OutputToStdout {
		return nil, nil
	}
	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("iqproc: file-output mode requires --output")
	}
	switch cfg.OutputContainer {
	case iqproc.ContainerWav, iqproc.ContainerRF64Wav:
		bits := cfg.OutputFormat.BytesPerSample() * 8
		return source.NewWavFile(cfg.OutputPath, bits, cfg.OutputFormat == iqproc.SampleFormatCF32), nil
	default:
		return source.NewRawFile(cfg.OutputPath), nil
	}
}

// vim: foldmethod=marker
