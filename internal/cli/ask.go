package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/harun/ctx/internal/daemon"
	"github.com/spf13/cobra"
)

// terminalConversation is the conversation id used by 'ctx ask'
const terminalConversation int64 = 0

// newCore builds the message-handling stack. Replaced in tests.
var newCore = daemon.BuildCore

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message to the agent",
	Long: `Send one message to the agent and print its reply.
When the agent asks to confirm a destructive action, the next line read
from stdin (yes or no) answers it.`,
	Example: `  ctx ask "add dentist appointment friday to my inbox"
  echo yes | ctx ask "archive the dentist card"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateCore(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := newLogger(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	core, err := newCore(cfg, log.GetZerolog())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	reply := core.FrontDoor.Handle(ctx, terminalConversation, strings.Join(args, " "))
	fmt.Fprintln(out, reply)

	if !core.FrontDoor.Pending(terminalConversation) {
		return nil
	}

	answer, err := readAnswer(cmd.InOrStdin())
	if err != nil {
		fmt.Fprintln(out, "No answer given, nothing was changed.")
		return nil
	}

	fmt.Fprintln(out, core.FrontDoor.Handle(ctx, terminalConversation, answer))
	return nil
}

// readAnswer returns the next line of in without its line ending
func readAnswer(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
