package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/bus"
	"github.com/tinkering/twinby/internal/sync"
)

func cmdLogin(ctx context.Context, c *cli, args []string) error {
	password, err := readPassword()
	if err != nil {
		return err
	}
	if err := c.rt.Login(ctx, args[0], password); err != nil {
		return err
	}
	fmt.Println("Signed in.")
	return nil
}

func cmdRegister(ctx context.Context, c *cli, args []string) error {
	age, err := strconv.Atoi(args[3])
	if err != nil {
		return &api.ValidationError{Field: "age", Reason: "must be a number"}
	}
	in := api.RegisterInput{
		Login:     args[0],
		Name:      args[1],
		Gender:    args[2],
		Age:       age,
		About:     c.about,
		Interests: api.ParseInterests(args[4]),
	}
	if c.photo != "" {
		f, closer, err := api.OpenFile(c.photo)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()
		in.Photo = f
	}
	if in.Password, err = readPassword(); err != nil {
		return err
	}
	if err := c.rt.Register(ctx, in); err != nil {
		return err
	}
	fmt.Println("Account created, signed in.")
	return nil
}

func cmdLogout(_ context.Context, c *cli, _ []string) error {
	if err := c.rt.Logout(); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func cmdMe(ctx context.Context, c *cli, _ []string) error {
	p, err := c.rt.Client.Me(ctx)
	if err != nil {
		return err
	}
	if c.jsonOut {
		outputJSON(p)
		return nil
	}
	printProfile(*p)
	return nil
}

func cmdFeed(ctx context.Context, c *cli, _ []string) error {
	profiles, err := c.rt.Client.Feed(ctx, c.rt.FeedLimit)
	if err != nil {
		return err
	}
	if c.jsonOut {
		outputJSON(profiles)
		return nil
	}
	if len(profiles) == 0 {
		fmt.Println("No new profiles.")
		return nil
	}
	for i, p := range profiles {
		if i > 0 {
			fmt.Println()
		}
		printProfile(p)
	}
	return nil
}

func cmdSwipe(ctx context.Context, c *cli, args []string) error {
	chatID, err := c.rt.Client.Swipe(ctx, args[0], api.Direction(args[1]))
	if err != nil {
		return err
	}
	if c.jsonOut {
		outputJSON(map[string]string{"chat_id": chatID})
		return nil
	}
	if chatID != "" {
		fmt.Printf("It's a match! Conversation %s\n", chatID)
	}
	return nil
}

func cmdChats(ctx context.Context, c *cli, _ []string) error {
	list := c.rt.ChatList
	if err := list.Refresh(ctx); err != nil {
		return err
	}
	items := list.Items()
	if c.jsonOut {
		outputJSON(items)
		return nil
	}
	if len(items) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, it := range items {
		mark := " "
		if it.Unread {
			mark = "*"
		}
		s := it.Summary
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mark, s.ConversationID, s.CounterpartName, s.LastAt(), firstLine(s.LastText()))
	}
	_ = w.Flush()
	fmt.Printf("%d unread\n", list.UnreadCount())
	return nil
}

func cmdMessages(ctx context.Context, c *cli, args []string) error {
	me, err := c.rt.Client.Me(ctx)
	if err != nil {
		return err
	}
	conv := c.rt.Engine.Open(args[0])
	defer conv.Close()

	select {
	case <-conv.Loaded():
	case <-ctx.Done():
		return ctx.Err()
	}
	snap := conv.Snapshot()
	if snap.Err != nil {
		return snap.Err
	}
	if c.jsonOut {
		outputJSON(snap.Messages)
		return nil
	}
	for _, m := range snap.Messages {
		printMessage(m, me.UserID, snap.Summary)
	}
	return nil
}

func cmdSend(ctx context.Context, c *cli, args []string) error {
	return c.withConversation(args[0], func(conv *sync.Conversation) error {
		return conv.Send(ctx, strings.Join(args[1:], " "))
	})
}

func cmdAttach(ctx context.Context, c *cli, args []string) error {
	f, closer, err := api.OpenFile(args[1])
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()
	return c.withConversation(args[0], func(conv *sync.Conversation) error {
		return conv.SendAttachment(ctx, f)
	})
}

func (c *cli) withConversation(id string, fn func(*sync.Conversation) error) error {
	conv := c.rt.Engine.Open(id)
	defer conv.Close()
	if err := fn(conv); err != nil {
		return err
	}
	if c.jsonOut {
		outputJSON(conv.Snapshot().Messages)
	} else {
		fmt.Println("Sent.")
	}
	return nil
}

func cmdSupport(ctx context.Context, c *cli, args []string) error {
	s := c.rt.Support
	if len(args) > 0 {
		ex, err := s.Send(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if c.jsonOut {
			outputJSON(ex)
			return nil
		}
		printSupport(ex.AssistantMessage)
		return nil
	}

	msgs, err := c.rt.Client.ListSupportMessages(ctx)
	if err != nil {
		return err
	}
	if c.jsonOut {
		outputJSON(msgs)
		return nil
	}
	if len(msgs) == 0 {
		fmt.Println("No support messages. Ask with: twinbyctl support <question>")
	}
	for _, m := range msgs {
		printSupport(m)
	}
	return nil
}

func cmdWatch(ctx context.Context, c *cli, args []string) error {
	me, err := c.rt.Client.Me(ctx)
	if err != nil {
		return err
	}
	events, unsubscribe := c.rt.Bus.Subscribe("conversation.", 16)
	defer unsubscribe()

	conv := c.rt.Engine.Open(args[0])
	defer conv.Close()

	printed := 0
	flush := func() {
		snap := conv.Snapshot()
		if len(snap.Messages) < printed {
			printed = 0
		}
		for _, m := range snap.Messages[printed:] {
			if c.jsonOut {
				outputJSON(m)
			} else {
				printMessage(m, me.UserID, snap.Summary)
			}
		}
		printed = len(snap.Messages)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-conv.Done():
			return nil
		case evt := <-events:
			if evt.Key != conv.ID() {
				continue
			}
			switch evt.Kind {
			case bus.ConversationUpdated:
				flush()
			case bus.ConversationStateChanged:
				if snap := conv.Snapshot(); snap.Err != nil {
					fmt.Fprintf(os.Stderr, "%s, retrying…\n", api.UserMessage(snap.Err))
				}
			}
		}
	}
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password on stdin")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printProfile(p api.Profile) {
	fmt.Printf("%s, %d (%s)  id=%s\n", p.Name, p.Age, p.Gender, p.UserID)
	if p.About != "" {
		fmt.Printf("  %s\n", p.About)
	}
	if len(p.Interests) > 0 {
		fmt.Printf("  interests: %s\n", strings.Join(p.Interests, ", "))
	}
	if p.PhotoURL != "" {
		fmt.Printf("  photo: %s\n", p.PhotoURL)
	}
}

func printMessage(m api.Message, me string, summary *api.ConversationSummary) {
	who := "them"
	switch {
	case m.SenderID == me:
		who = "you"
	case summary != nil:
		who = summary.CounterpartName
	}
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt, who, m.Text)
}

func printSupport(m api.SupportMessage) {
	who := "support"
	if m.Role == api.RoleUser {
		who = "you"
	}
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt, who, m.Text)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
