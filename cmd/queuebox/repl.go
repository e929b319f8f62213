package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/app/filter"
	"github.com/osa030/queuebox/internal/app/output"
	"github.com/osa030/queuebox/internal/app/playback"
	"github.com/osa030/queuebox/internal/app/queue"
	"github.com/osa030/queuebox/internal/app/selection"
	"github.com/osa030/queuebox/internal/app/source"
	"github.com/osa030/queuebox/internal/app/view"
	"github.com/osa030/queuebox/internal/domain/track"
)

var errQuit = errors.New("quit")

const helpText = `Commands:
  load <album|playlist|artist> <id> [source]    Replace the queue and start playing
  append <album|playlist|artist> <id> [source]  Append to the queue
  list                                          Show the queue view
  find [text]                                   Filter the view (no text clears)
  sort <title|artist|album|duration|none> [desc]
  click|ctrl|shift <row>                        Click a row (plain, toggle, range)
  dbl <row>                                     Double-click a row: jump to it
  playrow <row>                                 Play the view from a row
  remove [row...]                               Remove rows, or the selection
  move <row>                                    Move the selection before a row
  shuffle on|off    repeat off|all|one
  status [playing|paused|stopped]               Show or set the playback status
  next  prev  play  pause  stop  clear  status  sources  quit`

// progressReporter reports the position of the playing track.
type progressReporter interface {
	Progress() (output.Progress, bool)
}

// repl is the interactive front end. Rows are numbered in the current view,
// which is the play order narrowed by find and reordered by sort.
type repl struct {
	engine   *playback.Engine
	loader   *source.Loader
	sources  *source.Sources
	progress progressReporter
	out      io.Writer

	query    string
	sortBy   view.Field
	sortDesc bool
}

func newREPL(engine *playback.Engine, loader *source.Loader, sources *source.Sources, progress progressReporter, out io.Writer) *repl {
	return &repl{
		engine:   engine,
		loader:   loader,
		sources:  sources,
		progress: progress,
		out:      out,
	}
}

// Run reads commands from in until quit, EOF or ctx is done.
func (r *repl) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(r.out, "Type 'help' for commands.")
	for {
		fmt.Fprint(r.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := r.execute(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(r.out, "Error: %v\n", err)
			}
		}
	}
}

// execute runs one command line.
func (r *repl) execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		fmt.Fprintln(r.out, helpText)
		return nil
	case "quit", "exit":
		return errQuit
	case "load":
		return r.load(ctx, args, filter.ModeReplace)
	case "append":
		return r.load(ctx, args, filter.ModeAppend)
	case "list", "ls":
		return r.list(ctx)
	case "find":
		r.query = strings.Join(args, " ")
		return r.list(ctx)
	case "sort":
		return r.sort(ctx, args)
	case "click", "ctrl", "shift":
		return r.click(ctx, cmd, args)
	case "dbl":
		ref, _, err := r.row(ctx, args)
		if err != nil {
			return err
		}
		return r.engine.DoubleClick(ctx, ref.UniqueID)
	case "playrow":
		return r.playRow(ctx, args)
	case "remove", "rm":
		return r.remove(ctx, args)
	case "move", "mv":
		ref, _, err := r.row(ctx, args)
		if err != nil {
			return err
		}
		return r.engine.MoveSelected(ctx, ref.UniqueID)
	case "shuffle":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return errors.New("usage: shuffle on|off")
		}
		return r.engine.SetShuffle(ctx, args[0] == "on")
	case "repeat":
		if len(args) != 1 {
			return errors.New("usage: repeat off|all|one")
		}
		mode, err := queue.ParseRepeatMode(args[0])
		if err != nil {
			return err
		}
		return r.engine.SetRepeat(ctx, mode)
	case "next":
		return r.engine.Next(ctx)
	case "prev":
		return r.engine.Previous(ctx)
	case "play":
		return r.engine.Play(ctx)
	case "pause":
		return r.engine.Pause(ctx)
	case "stop":
		return r.engine.Stop(ctx)
	case "clear":
		return r.engine.Clear(ctx)
	case "status":
		if len(args) == 1 {
			return r.setStatus(ctx, args[0])
		}
		return r.status(ctx)
	case "sources":
		fmt.Fprintln(r.out, strings.Join(r.sources.Names(), "\n"))
		return nil
	default:
		return errors.Newf("unknown command %q (try 'help')", cmd)
	}
}

func (r *repl) load(ctx context.Context, args []string, mode filter.LoadMode) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: load|append <album|playlist|artist> <id> [source]")
	}
	kind, err := track.ParseKind(args[0])
	if err != nil {
		return err
	}
	sourceName := ""
	if len(args) == 3 {
		sourceName = args[2]
	}

	result, err := r.loader.Load(ctx, sourceName, kind, args[1], mode)
	if result != nil {
		fmt.Fprintf(r.out, "%s: %d tracks loaded, %d rejected\n", result.Collection.Name, result.Loaded, len(result.Rejected))
		for _, rej := range result.Rejected {
			fmt.Fprintf(r.out, "  rejected %s (%s: %s)\n", rej.Track.Name, rej.Filter, rej.Code)
		}
	}
	if err != nil {
		return err
	}

	if mode == filter.ModeReplace && result.Loaded > 0 {
		return r.engine.Play(ctx)
	}
	return nil
}

// view returns the snapshot and the rows currently displayed.
func (r *repl) view(ctx context.Context) (playback.Snapshot, []track.Reference, error) {
	snap, err := r.engine.Snapshot(ctx)
	if err != nil {
		return playback.Snapshot{}, nil, err
	}
	rows := view.Filter(snap.Queue.Ordered(), r.query)
	if r.sortBy != "" {
		rows = view.Sort(rows, r.sortBy, r.sortDesc)
	}
	return snap, rows, nil
}

// row resolves a 1-based row argument against the current view.
func (r *repl) row(ctx context.Context, args []string) (track.Reference, []track.Reference, error) {
	if len(args) != 1 {
		return track.Reference{}, nil, errors.New("expected one row number")
	}
	_, rows, err := r.view(ctx)
	if err != nil {
		return track.Reference{}, nil, err
	}
	n, err := parseRow(args[0], len(rows))
	if err != nil {
		return track.Reference{}, nil, err
	}
	return rows[n], rows, nil
}

func (r *repl) sort(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errors.New("usage: sort <title|artist|album|duration|none> [desc]")
	}
	switch field := view.Field(strings.ToLower(args[0])); field {
	case "none":
		r.sortBy, r.sortDesc = "", false
	case view.FieldTitle, view.FieldArtist, view.FieldAlbum, view.FieldDuration:
		r.sortBy = field
		r.sortDesc = len(args) == 2 && strings.EqualFold(args[1], "desc")
	default:
		return errors.Newf("unknown sort field %q", args[0])
	}
	return r.list(ctx)
}

func (r *repl) click(ctx context.Context, cmd string, args []string) error {
	ref, rows, err := r.row(ctx, args)
	if err != nil {
		return err
	}
	modifier := selection.ModNone
	switch cmd {
	case "ctrl":
		modifier = selection.ModToggle
	case "shift":
		modifier = selection.ModRange
	}
	return r.engine.Click(ctx, selection.Click{
		UniqueID: ref.UniqueID,
		Modifier: modifier,
		View:     view.IDs(rows),
	})
}

func (r *repl) playRow(ctx context.Context, args []string) error {
	ref, rows, err := r.row(ctx, args)
	if err != nil {
		return err
	}
	idx := 0
	for i, row := range rows {
		if row.UniqueID == ref.UniqueID {
			idx = i
			break
		}
	}
	return r.engine.PlayFromRowClick(ctx, rows, idx, ref.ID, ref.UniqueID)
}

func (r *repl) remove(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return r.engine.RemoveSelected(ctx)
	}
	_, rows, err := r.view(ctx)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		n, err := parseRow(arg, len(rows))
		if err != nil {
			return err
		}
		ids = append(ids, rows[n].UniqueID)
	}
	return r.engine.Remove(ctx, ids)
}

func (r *repl) list(ctx context.Context) error {
	snap, rows, err := r.view(ctx)
	if err != nil {
		return err
	}
	renderQueue(r.out, snap, rows)
	return nil
}

func (r *repl) status(ctx context.Context) error {
	snap, err := r.engine.Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, formatStatus(snap, r.progress))
	return nil
}

func (r *repl) setStatus(ctx context.Context, arg string) error {
	status, err := queue.ParseStatus(arg)
	if err != nil {
		return err
	}
	switch status {
	case queue.StatusPlaying:
		return r.engine.Play(ctx)
	case queue.StatusPaused:
		return r.engine.Pause(ctx)
	default:
		return r.engine.Stop(ctx)
	}
}

// renderQueue prints rows as a table, marking the active and selected rows.
func renderQueue(w io.Writer, snap playback.Snapshot, rows []track.Reference) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "", "Title", "Artist", "Album", "Time"})

	activeID := snap.Slots.ActiveID()
	for i, ref := range rows {
		marker := ""
		if ref.UniqueID == activeID {
			marker = statusIcon(snap.Status())
		}
		if snap.IsSelected(ref.UniqueID) {
			marker += "*"
		}
		title := ref.Name
		if ref.UniqueID == activeID {
			title = text.FgGreen.Sprint(title)
		}
		t.AppendRow(table.Row{i + 1, marker, title, strings.Join(ref.Artists, ", "), ref.Album, formatDuration(ref.Duration)})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d of %d", len(rows), snap.Queue.Len())})
	t.Render()
}

// formatStatus renders a one-line status.
func formatStatus(snap playback.Snapshot, progress progressReporter) string {
	mode := fmt.Sprintf("[repeat=%s shuffle=%t]", snap.Queue.Repeat, snap.Queue.Shuffle)
	ref, ok := snap.Active()
	if !ok {
		return fmt.Sprintf("%s %s", statusIcon(queue.StatusStopped), mode)
	}

	position := formatDuration(ref.Duration)
	if progress != nil {
		if p, ok := progress.Progress(); ok && p.Track.UniqueID == ref.UniqueID {
			position = formatDuration(p.Elapsed) + " / " + position
		}
	}
	line := fmt.Sprintf("%s %s - %s %s %s", statusIcon(snap.Status()), ref.Name, ref.MainArtist(), position, mode)
	if snap.Artwork != "" {
		line += " artwork=" + snap.Artwork
	}
	if next := snap.Slots.Preload; next != nil {
		line += " next=" + next.Name
	}
	return line
}

func statusIcon(s queue.Status) string {
	switch s {
	case queue.StatusPlaying:
		return "▶"
	case queue.StatusPaused:
		return "⏸"
	default:
		return "⏹"
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// parseRow converts a 1-based row number into an index below n.
func parseRow(s string, n int) (int, error) {
	row, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Newf("invalid row %q", s)
	}
	if row < 1 || row > n {
		zlog.Debug().Msgf("repl: row out of range: row=%d rows=%d", row, n)
		return 0, errors.Newf("row %d out of range (1-%d)", row, n)
	}
	return row - 1, nil
}
