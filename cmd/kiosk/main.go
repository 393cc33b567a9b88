// Command kiosk is a terminal front-end for self check-in. Type a name or a
// full mobile number to search; commands start with a colon.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"enaya/config"
	"enaya/kiosk"
	"enaya/models"
	"enaya/services/directory"
	"enaya/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const usage = `Type a name or a 05xxxxxxxx number to search.
  :s N   select result N
  :c     check in
  :w     continue as walk-in
  :h     ask for help
  :q     quit`

// screen renders views and notices to out. Renders come from several goroutines.
type screen struct {
	mu   sync.Mutex
	out  io.Writer
	last kiosk.View
}

func (s *screen) render(v kiosk.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = v

	fmt.Fprintf(s.out, "\n[%s] %q\n", v.State, v.Query)
	switch {
	case v.State == kiosk.StateSearching:
		fmt.Fprintln(s.out, "  searching...")
	case v.OfferWalkIn:
		fmt.Fprintln(s.out, "  No match. Type :w to continue as a walk-in.")
	case v.Selected == nil:
		for i, g := range v.Results {
			seg, ok := kiosk.Highlight(g.Name, v.Query)
			name := g.Name
			if ok {
				name = seg.Before + "[" + seg.Match + "]" + seg.After
			}
			fmt.Fprintf(s.out, "  %d) %s  %s  %s\n", i+1, name, models.MaskPhone(g.Phone), g.Membership)
		}
	}

	if g := v.Selected; g != nil {
		fmt.Fprintf(s.out, "  %s  %s", g.Name, v.MaskedPhone())
		if g.Membership != "" {
			fmt.Fprintf(s.out, "  (%s member)", g.Membership)
		}
		fmt.Fprintln(s.out)
		if g.Notes != "" {
			fmt.Fprintf(s.out, "  note: %s\n", g.Notes)
		}
		for _, a := range g.Upcoming {
			fmt.Fprintf(s.out, "  - %s %s with %s: %s [%s]\n",
				a.Date, a.Time, a.Staff, strings.Join(a.Services.Names(), ", "), a.Status)
		}
		switch {
		case v.AlreadyCheckedIn:
			fmt.Fprintln(s.out, "  Already checked in.")
		case v.CanCheckIn:
			fmt.Fprintln(s.out, "  Type :c to check in.")
		}
	}
}

func (s *screen) notice(n kiosk.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "  >> %s: %s\n", n.Level, n.Message)
}

func (s *screen) resultID(n int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 || n > len(s.last.Results) {
		return "", false
	}
	return s.last.Results[n-1].ID, true
}

func main() {
	config.LoadConfig()
	logger := utils.GetLogger().With(zap.String("session", uuid.NewString()))
	defer logger.Sync()

	policy, err := directory.PolicyByName(config.AppConfig.SearchPolicy)
	if err != nil {
		logger.Fatal("invalid search policy", zap.Error(err))
	}

	client := kiosk.NewAPIClient(config.AppConfig.KioskAPIURL, config.AppConfig.KioskToken, logger)
	scr := &screen{out: os.Stdout}
	opts := kiosk.Options{
		Debounce: config.AppConfig.KioskDebounce(),
		Policy:   policy,
		Currency: config.AppConfig.PaymentCurrency,
		Logger:   logger,
		OnChange: scr.render,
		OnNotice: scr.notice,
	}
	if config.AppConfig.KioskRequirePayment {
		opts.Payments = client
	}
	wf := kiosk.NewWorkflow(client, client, client, opts)
	defer wf.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println(usage)
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !handleLine(ctx, wf, scr, line) {
				return
			}
		}
	}
}

// handleLine applies one line of input. It returns false to quit.
func handleLine(ctx context.Context, wf *kiosk.Workflow, scr *screen, line string) bool {
	if !strings.HasPrefix(line, ":") {
		wf.SetQuery(line)
		return true
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case ":q":
		return false
	case ":s":
		if len(fields) < 2 {
			fmt.Println(usage)
			return true
		}
		n, err := strconv.Atoi(fields[1])
		id, ok := scr.resultID(n)
		if err != nil || !ok {
			fmt.Println("  no such result")
			return true
		}
		go wf.Select(ctx, id)
	case ":c":
		go wf.CheckIn(ctx)
	case ":w":
		wf.WalkIn()
	case ":h":
		wf.Help()
	default:
		fmt.Println(usage)
	}
	return true
}
