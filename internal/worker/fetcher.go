package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
)

const progressPrefix = "progress:"

type ytDlpExecutor struct {
	ytDlpPath   string
	ffmpegPath  string
	ffprobePath string
	runner      commandRunner
	stat        func(name string) (os.FileInfo, error)
}

func NewExecutor(cfg config.FetcherConfig) Executor {
	return &ytDlpExecutor{
		ytDlpPath:   cfg.YtDlpPath,
		ffmpegPath:  cfg.FfmpegPath,
		ffprobePath: cfg.FfprobePath,
		runner:      &execRunner{},
		stat:        os.Stat,
	}
}

func (e *ytDlpExecutor) FetchAndNormalize(ctx context.Context, sourceURL, workDir string, hooks FetchHooks) (*FetchResult, error) {
	emit := func(phase models.Phase, fraction float64) {
		if hooks.OnProgress != nil {
			hooks.OnProgress(models.ProgressEvent{Phase: phase, Fraction: fraction})
		}
	}

	emit(models.PhaseFetching, 0)
	meta, err := e.fetchMetadata(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	if hooks.OnMetadata != nil {
		hooks.OnMetadata(meta)
	}

	sourcePath, err := e.download(ctx, sourceURL, workDir, func(f float64) { emit(models.PhaseFetching, f) })
	if err != nil {
		return nil, err
	}
	emit(models.PhaseFetching, 1)

	duration := 0.0
	if meta.DurationSec != nil {
		duration = *meta.DurationSec
	}
	if duration <= 0 {
		if probed, perr := e.probeDuration(ctx, sourcePath); perr == nil {
			duration = probed
		}
	}

	emit(models.PhaseNormalizing, 0)
	normalizedPath, err := e.normalize(ctx, sourcePath, workDir, duration, func(f float64) { emit(models.PhaseNormalizing, f) })
	if err != nil {
		return nil, err
	}
	emit(models.PhaseNormalizing, 1)

	return &FetchResult{
		Metadata:            meta,
		SourceAudioPath:     sourcePath,
		NormalizedAudioPath: normalizedPath,
	}, nil
}

type ytDlpInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Channel    string  `json:"channel"`
	Uploader   string  `json:"uploader"`
	UploadDate string  `json:"upload_date"`
	Duration   float64 `json:"duration"`
}

func (e *ytDlpExecutor) fetchMetadata(ctx context.Context, sourceURL string) (models.Metadata, error) {
	res, err := e.runner.Run(ctx, nil, e.ytDlpPath,
		"--dump-json", "--no-playlist", "--no-warnings", "--skip-download", sourceURL)
	if err != nil {
		return models.Metadata{}, classify(ctx, KindDownload, err, res, "yt-dlp metadata")
	}
	return parseMetadata(res.Stdout)
}

func parseMetadata(stdout string) (models.Metadata, error) {
	var info ytDlpInfo
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &info); err != nil {
		return models.Metadata{}, newExternalError(KindDownload, err, "parse yt-dlp metadata")
	}
	meta := models.Metadata{
		YoutubeID:    info.ID,
		Title:        info.Title,
		ChannelTitle: info.Channel,
	}
	if meta.ChannelTitle == "" {
		meta.ChannelTitle = info.Uploader
	}
	if t, err := time.Parse("20060102", info.UploadDate); err == nil {
		meta.PublishedAt = &t
	}
	if info.Duration > 0 {
		d := info.Duration
		meta.DurationSec = &d
	}
	return meta, nil
}

func (e *ytDlpExecutor) download(ctx context.Context, sourceURL, workDir string, onFraction func(float64)) (string, error) {
	target := filepath.Join(workDir, sourceAudioName)
	res, err := e.runner.Run(ctx,
		func(line string) {
			if f, ok := parseDownloadProgress(line); ok {
				onFraction(f)
			}
		},
		e.ytDlpPath,
		"--no-playlist", "--no-warnings", "--newline",
		"-f", "bestaudio/best",
		"-x", "--audio-format", "mp3",
		"--progress-template", "download:"+progressPrefix+"%(progress.downloaded_bytes)s/%(progress.total_bytes)s/%(progress.total_bytes_estimate)s",
		"-o", filepath.Join(workDir, "source.%(ext)s"),
		sourceURL,
	)
	if err != nil {
		return "", classify(ctx, KindDownload, err, res, "yt-dlp download")
	}
	if _, err = e.stat(target); err != nil {
		return "", newExternalError(KindDownload, err, "yt-dlp produced no %s", sourceAudioName)
	}
	return target, nil
}

// parseDownloadProgress reads "progress:<done>/<total>/<estimate>" lines. Unknown totals are "NA".
func parseDownloadProgress(line string) (float64, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), progressPrefix)
	if !ok {
		return 0, false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return 0, false
	}
	done, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, false
	}
	total, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || total <= 0 {
		total, err = strconv.ParseFloat(parts[2], 64)
		if err != nil || total <= 0 {
			return 0, false
		}
	}
	return clampFraction(done / total), true
}

func (e *ytDlpExecutor) normalize(ctx context.Context, sourcePath, workDir string, duration float64, onFraction func(float64)) (string, error) {
	target := filepath.Join(workDir, normalizedAudioName)
	res, err := e.runner.Run(ctx,
		func(line string) {
			if f, ok := parseFfmpegProgress(line, duration); ok {
				onFraction(f)
			}
		},
		e.ffmpegPath,
		"-hide_banner", "-nostats", "-loglevel", "error", "-y",
		"-i", sourcePath,
		"-ac", "1", "-ar", normalizedRate, "-f", "wav",
		"-progress", "pipe:1",
		target,
	)
	if err != nil {
		return "", classify(ctx, KindConvert, err, res, "ffmpeg normalize")
	}
	if _, err = e.stat(target); err != nil {
		return "", newExternalError(KindConvert, err, "ffmpeg produced no %s", normalizedAudioName)
	}
	return target, nil
}

// parseFfmpegProgress reads the key=value lines of "ffmpeg -progress". out_time_us and out_time_ms
// are both microseconds.
func parseFfmpegProgress(line string, duration float64) (float64, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return 0, false
	}
	switch key {
	case "progress":
		if value == "end" {
			return 1, true
		}
	case "out_time_us", "out_time_ms":
		if duration <= 0 {
			return 0, false
		}
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, false
		}
		return clampFraction(float64(us) / 1e6 / duration), true
	}
	return 0, false
}

func (e *ytDlpExecutor) probeDuration(ctx context.Context, path string) (float64, error) {
	res, err := e.runner.Run(ctx, nil, e.ffprobePath,
		"-v", "error", "-show_entries", "format=duration", "-of", "csv=p=0", path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration error: %v", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %v", err)
	}
	return duration, nil
}

func classify(ctx context.Context, kind string, err error, res commandResult, what string) *ExternalError {
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return newExternalError(KindMissingTool, err, "%s", what)
	case ctx.Err() != nil:
		return newExternalError(KindTimeout, ctx.Err(), "%s", what)
	}
	detail := tail(res.Stderr, 200)
	if detail == "" {
		return newExternalError(kind, err, "%s exited with %d", what, res.ExitCode)
	}
	return newExternalError(kind, err, "%s exited with %d: %s", what, res.ExitCode, detail)
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
