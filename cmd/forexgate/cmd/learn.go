package cmd

import (
	"fmt"
	"io"

	"github.com/forexgate/forexgate/internal/academy"
	"github.com/forexgate/forexgate/journal"
	"github.com/spf13/cobra"
)

var lessonCmd = &cobra.Command{
	Use:   "lesson",
	Short: "Track lesson progress",
}

var lessonCompleteCmd = &cobra.Command{
	Use:   "complete <course-id> <lesson-id>",
	Short: "Mark a lesson completed",
	Args:  cobra.ExactArgs(2),
	RunE:  runLessonComplete,
}

var lessonListCmd = &cobra.Command{
	Use:   "list",
	Short: "List lesson progress",
	Args:  cobra.NoArgs,
	RunE:  runLessonList,
}

var patternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Track chart pattern mastery",
}

var patternListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the pattern catalog with the learner's status",
	Args:  cobra.NoArgs,
	RunE:  runPatternList,
}

var patternSetCmd = &cobra.Command{
	Use:   "set <pattern-id> <status>",
	Short: "Set a pattern's status (locked|learning|practicing|mastered)",
	Args:  cobra.ExactArgs(2),
	RunE:  runPatternSet,
}

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Write journal entries",
}

var entryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a journal entry",
	Long: `Add a journal entry. Entry types: trade_review, daily_reflection,
weekly_review, lesson_learned, emotional_log.

Example:
  forexgate entry add -u <id> --type daily_reflection --title "Monday" \
    --content "Waited for the retest and skipped the chase."`,
	Args: cobra.NoArgs,
	RunE: runEntryAdd,
}

var (
	entryIn   academy.EntryInput
	entryType string
)

func init() {
	rootCmd.AddCommand(lessonCmd, patternCmd, entryCmd)
	lessonCmd.AddCommand(lessonCompleteCmd, lessonListCmd)
	patternCmd.AddCommand(patternListCmd, patternSetCmd)
	entryCmd.AddCommand(entryAddCmd)

	f := entryAddCmd.Flags()
	f.StringVar(&entryType, "type", string(journal.EntryDailyReflection), "entry type")
	f.StringVar(&entryIn.Title, "title", "", "title")
	f.StringVar(&entryIn.Content, "content", "", "content")
	f.StringSliceVar(&entryIn.Tags, "tag", nil, "tag (repeatable)")
	f.StringVar(&entryIn.EmotionalState, "emotion", "", "calm|anxious|confident|frustrated|neutral|excited")
	f.IntVar(&entryIn.ProcessRating, "rating", 0, "process rating 1-5")
	f.StringVar(&entryIn.TradeID, "trade", "", "related trade id")
}

func runLessonComplete(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.CompleteLesson(cmd.Context(), id, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Completed %s/%s\n", args[0], args[1])
	return nil
}

func runLessonList(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	lessons, err := a.store.ListLessons(cmd.Context(), id)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), lessons, func(w io.Writer) {
		for _, l := range lessons {
			fmt.Fprintf(w, "%-20s %-20s %s\n", l.CourseID, l.LessonID, l.Status)
		}
	})
}

type patternRow struct {
	academy.Pattern
	Status journal.PatternStatus `json:"status"`
}

func runPatternList(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	progress, err := a.store.ListPatterns(cmd.Context(), id)
	if err != nil {
		return err
	}
	status := make(map[string]journal.PatternStatus, len(progress))
	for _, p := range progress {
		status[p.PatternID] = p.Status
	}
	var rows []patternRow
	for _, p := range academy.Patterns() {
		s, ok := status[p.ID]
		if !ok {
			s = journal.PatternLocked
		}
		rows = append(rows, patternRow{Pattern: p, Status: s})
	}
	return render(cmd.OutOrStdout(), rows, func(w io.Writer) {
		for _, r := range rows {
			fmt.Fprintf(w, "%-14s %-18s %-12s %-12s %s\n", r.ID, r.Title, r.Difficulty, r.Category, r.Status)
		}
	})
}

func runPatternSet(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.svc.SetPatternStatus(cmd.Context(), id, args[0], journal.PatternStatus(args[1]))
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), p, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %s\n", p.PatternID, p.Status)
	})
}

func runEntryAdd(cmd *cobra.Command, args []string) error {
	id, err := requireUser()
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	in := entryIn
	in.Type = journal.EntryType(entryType)
	e, err := a.svc.AddJournalEntry(cmd.Context(), id, in)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), e, func(w io.Writer) {
		fmt.Fprintf(w, "Entry %s\n", e.ID)
	})
}
