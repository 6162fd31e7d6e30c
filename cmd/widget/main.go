package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wovenchat/widget/internal/config"
	"github.com/wovenchat/widget/internal/model/chat"
	"github.com/wovenchat/widget/internal/model/lead"
	"github.com/wovenchat/widget/internal/render"
	"github.com/wovenchat/widget/internal/widget"
)

// Terminal driver for the widget runtime: sends messages over the
// selected transport and prints the rendered view after each exchange.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	origin := flag.String("origin", cfg.Origin, "backend base URL")
	siteID := flag.Int("site", cfg.SiteID, "site identifier")
	mode := flag.String("mode", cfg.Transport, "transport mode: rest or duplex")
	storage := flag.String("storage", cfg.StorageDir, "directory for the session identifier (empty: in-memory)")
	timeout := flag.Duration("timeout", time.Duration(cfg.TimeoutSeconds)*time.Second, "request timeout")
	scriptSrc := flag.String("script-src", "", "simulate the embed contract: resolve origin and site from a widget script URL")
	flag.Parse()

	if *scriptSrc != "" {
		embed, err := config.ResolveEmbed(*scriptSrc, map[string]string{
			"data-site-id": strconv.Itoa(*siteID),
		})
		if err != nil {
			log.Fatalf("failed to resolve embed script: %v", err)
		}
		*origin = embed.Origin
		*siteID = embed.SiteID
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := widget.New(ctx, widget.Options{
		Origin:     *origin,
		SiteID:     *siteID,
		Mode:       widget.Mode(*mode),
		StorageDir: *storage,
		Timeout:    *timeout,
	})
	if err != nil {
		log.Fatalf("failed to construct widget: %v", err)
	}
	defer w.Shutdown()

	w.Open()
	printView(w.View(), 0)

	fmt.Printf("session %s connected to %s (%s mode)\n", w.SessionID(), *origin, *mode)
	fmt.Println("type a message, or /lead name;email;phone;text, /cancel, /close, /open, /quit")

	scanner := bufio.NewScanner(os.Stdin)
	seen := len(w.View().Messages)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/quit":
			return
		case line == "/close":
			w.Collapse()
			fmt.Println("(widget collapsed)")
			continue
		case line == "/open":
			w.Open()
		case line == "/cancel":
			if err := w.CancelLead(); err != nil {
				fmt.Printf("! %v\n", err)
			}
		case strings.HasPrefix(line, "/lead "):
			if err := submitLead(ctx, w, strings.TrimPrefix(line, "/lead ")); err != nil {
				fmt.Printf("! %v\n", err)
				continue
			}
		default:
			if err := w.SendMessage(ctx, line); err != nil {
				fmt.Printf("! %v\n", err)
				continue
			}
			waitForReply(w)
		}
		seen = printView(w.View(), seen)
	}
}

func submitLead(ctx context.Context, w *widget.Widget, raw string) error {
	parts := strings.SplitN(raw, ";", 4)
	submission := lead.Submission{}
	if len(parts) > 0 {
		submission.Name = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		submission.Email = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		submission.Phone = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 {
		submission.Message = strings.TrimSpace(parts[3])
	}
	return w.SubmitLead(ctx, submission)
}

// waitForReply polls until the pending exchange resolves.
func waitForReply(w *widget.Widget) {
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		view := w.View()
		if !view.ShowTyping {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// printView prints messages not shown yet and returns the new count.
func printView(view render.View, seen int) int {
	for _, msg := range view.Messages[seen:] {
		label := "you"
		if msg.Sender == chat.SenderBot {
			label = view.BotName
		}
		if msg.Badge != render.BadgeNone {
			fmt.Printf("%s: %s [%s]\n", label, msg.Text, msg.Badge)
		} else {
			fmt.Printf("%s: %s\n", label, msg.Text)
		}
	}
	if view.ShowLeadForm {
		fmt.Println("(lead form open: reply with /lead name;email;phone;text or /cancel)")
	}
	return len(view.Messages)
}
