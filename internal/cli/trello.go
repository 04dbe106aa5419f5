package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/harun/ctx/pkg/trello"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List your Trello boards",
	Args:  cobra.NoArgs,
	RunE:  runBoards,
}

var listsCmd = &cobra.Command{
	Use:   "lists <board-id>",
	Short: "List the lists on a Trello board",
	Args:  cobra.ExactArgs(1),
	RunE:  runLists,
}

var cardsCmd = &cobra.Command{
	Use:   "cards <list-id>",
	Short: "List the cards in a Trello list",
	Args:  cobra.ExactArgs(1),
	RunE:  runCards,
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the authenticated Trello member",
	Args:  cobra.NoArgs,
	RunE:  runMe,
}

func init() {
	rootCmd.AddCommand(boardsCmd)
	rootCmd.AddCommand(listsCmd)
	rootCmd.AddCommand(cardsCmd)
	rootCmd.AddCommand(meCmd)
}

// newTrelloClient builds a client from the loaded config
func newTrelloClient() (*trello.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return trello.New(trello.Config{
		BaseURL: cfg.Trello.BaseURL,
		APIKey:  cfg.Trello.APIKey,
		Token:   cfg.Trello.Token,
		Logger:  zerolog.Nop(),
	})
}

func runBoards(cmd *cobra.Command, args []string) error {
	client, err := newTrelloClient()
	if err != nil {
		return err
	}

	boards, err := client.Boards(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, b := range boards {
		fmt.Fprintf(w, "%s\t%s\n", b.ID, b.Name)
	}
	return w.Flush()
}

func runLists(cmd *cobra.Command, args []string) error {
	client, err := newTrelloClient()
	if err != nil {
		return err
	}

	lists, err := client.Lists(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, l := range lists {
		fmt.Fprintf(w, "%s\t%s\n", l.ID, l.Name)
	}
	return w.Flush()
}

func runCards(cmd *cobra.Command, args []string) error {
	client, err := newTrelloClient()
	if err != nil {
		return err
	}

	cards, err := client.Cards(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDUE")
	for _, c := range cards {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.DueString())
	}
	return w.Flush()
}

func runMe(cmd *cobra.Command, args []string) error {
	client, err := newTrelloClient()
	if err != nil {
		return err
	}

	member, err := client.Me(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (@%s) %s\n", member.FullName, member.Username, member.ID)
	return nil
}
