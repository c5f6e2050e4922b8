package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"connect4/game"
)

const retryPrompt = "That is not a valid move. Please try again:"

// Human reads columns typed by a person.
type Human struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewHuman(in io.Reader, out io.Writer) *Human {
	return &Human{in: bufio.NewScanner(in), out: out}
}

func (h *Human) Decide(ctx context.Context, b game.Board, answer *Answer) {
	fmt.Fprintf(h.out, "\n%s\nPlayer %c, enter a column (0-6):\n", b, "XO"[b.Turn()])
	for ctx.Err() == nil && h.in.Scan() {
		col, err := strconv.Atoi(strings.TrimSpace(h.in.Text()))
		if err == nil && b.IsValid(col) {
			answer.Set(col)
			return
		}
		fmt.Fprintln(h.out, retryPrompt)
	}
}

func (h *Human) Name() string {
	return "Human"
}

func (h *Human) Interactive() bool {
	return true
}
