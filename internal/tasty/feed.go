package tasty

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dgnsrekt/gexscope/internal/gex"
)

const (
	// Time allowed to write a message to the peer.
	feedWriteWait = 10 * time.Second

	// Time allowed to read the next message from the peer.
	feedPongWait = 60 * time.Second

	// Send pings with this period. Must be less than feedPongWait.
	feedPingPeriod = (feedPongWait * 9) / 10

	// Per-kind delivery buffer. The pipeline drains continuously during the
	// collection window, so overflow means a stalled consumer; frames are
	// dropped rather than blocking the read loop.
	feedBufferSize = 4096
)

// subscribeFrame is the outgoing subscription request.
type subscribeFrame struct {
	Action  string   `json:"action"`
	Event   string   `json:"event"`
	Symbols []string `json:"symbols"`
}

// feedFrame is one incoming message: a batch of events of a single kind.
type feedFrame struct {
	Event  string            `json:"event"`
	Data   []json.RawMessage `json:"data"`
	Type   string            `json:"type,omitempty"`
	Reason string            `json:"reason,omitempty"`
}

type wireFeedEvent struct {
	EventSymbol  string     `json:"eventSymbol"`
	Price        wireNumber `json:"price"`
	BidPrice     wireNumber `json:"bidPrice"`
	AskPrice     wireNumber `json:"askPrice"`
	Gamma        wireNumber `json:"gamma"`
	OpenInterest wireNumber `json:"openInterest"`
	DayVolume    wireNumber `json:"dayVolume"`
}

// Feed is a live websocket event session. Decoded events fan out to
// per-kind channels; all channels close when the connection drops or Close
// is called.
type Feed struct {
	conn   *websocket.Conn
	logger *zap.Logger

	trades    chan gex.TradeTick
	quotes    chan gex.QuoteTick
	greeks    chan gex.GreeksUpdate
	summaries chan gex.SummaryUpdate

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
	dropped   int64
}

// OpenFeed dials the streamer endpoint negotiated at session creation and
// starts the read and keepalive loops.
func (c *Client) OpenFeed(ctx context.Context) (gex.Feed, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.streamerURL+"?access_token="+c.token, nil)
	if err != nil {
		return nil, err
	}

	f := &Feed{
		conn:      conn,
		logger:    c.logger,
		trades:    make(chan gex.TradeTick, feedBufferSize),
		quotes:    make(chan gex.QuoteTick, feedBufferSize),
		greeks:    make(chan gex.GreeksUpdate, feedBufferSize),
		summaries: make(chan gex.SummaryUpdate, feedBufferSize),
		done:      make(chan struct{}),
	}

	conn.SetReadLimit(512 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	go f.readLoop()
	go f.pingLoop()
	return f, nil
}

func (f *Feed) Trades() <-chan gex.TradeTick        { return f.trades }
func (f *Feed) Quotes() <-chan gex.QuoteTick        { return f.quotes }
func (f *Feed) Greeks() <-chan gex.GreeksUpdate     { return f.greeks }
func (f *Feed) Summaries() <-chan gex.SummaryUpdate { return f.summaries }

// Subscribe requests events of one kind for the given streamer symbols.
func (f *Feed) Subscribe(ctx context.Context, kind gex.EventKind, symbols []string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return websocket.ErrCloseSent
	default:
	}

	frame := subscribeFrame{Action: "subscribe", Event: string(kind), Symbols: symbols}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_ = f.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
	return f.conn.WriteJSON(frame)
}

// Close tears down the connection. Safe to call more than once.
func (f *Feed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		f.writeMu.Lock()
		_ = f.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
		_ = f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.writeMu.Unlock()
		err = f.conn.Close()
	})
	return err
}

func (f *Feed) pingLoop() {
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.writeMu.Lock()
			_ = f.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			err := f.conn.WriteMessage(websocket.PingMessage, nil)
			f.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (f *Feed) readLoop() {
	defer func() {
		close(f.trades)
		close(f.quotes)
		close(f.greeks)
		close(f.summaries)
		if f.dropped > 0 {
			f.logger.Debug("feed dropped events on full buffers", zap.Int64("count", f.dropped))
		}
	}()

	for {
		_, msg, err := f.conn.ReadMessage()
		if err != nil {
			select {
			case <-f.done:
			default:
				f.logger.Debug("feed read loop ended", zap.Error(err))
			}
			return
		}

		var frame feedFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			f.logger.Debug("ignoring undecodable frame", zap.Error(err))
			continue
		}
		if frame.Type == "ERROR" {
			f.logger.Warn("feed error frame", zap.String("reason", frame.Reason))
			continue
		}
		f.dispatch(frame)
	}
}

func (f *Feed) dispatch(frame feedFrame) {
	for _, raw := range frame.Data {
		var ev wireFeedEvent
		if err := json.Unmarshal(raw, &ev); err != nil || ev.EventSymbol == "" {
			continue
		}

		switch gex.EventKind(frame.Event) {
		case gex.EventTrade:
			f.offerTrade(gex.TradeTick{Symbol: ev.EventSymbol, Price: float64(ev.Price)})
		case gex.EventQuote:
			f.offerQuote(gex.QuoteTick{
				Symbol:   ev.EventSymbol,
				BidPrice: float64(ev.BidPrice),
				AskPrice: float64(ev.AskPrice),
			})
		case gex.EventGreeks:
			f.offerGreeks(gex.GreeksUpdate{Symbol: ev.EventSymbol, Gamma: float64(ev.Gamma)})
		case gex.EventSummary:
			f.offerSummary(gex.SummaryUpdate{
				Symbol:       ev.EventSymbol,
				OpenInterest: int64(ev.OpenInterest),
				DayVolume:    int64(ev.DayVolume),
			})
		}
	}
}

func (f *Feed) offerTrade(ev gex.TradeTick) {
	select {
	case f.trades <- ev:
	default:
		f.dropped++
	}
}

func (f *Feed) offerQuote(ev gex.QuoteTick) {
	select {
	case f.quotes <- ev:
	default:
		f.dropped++
	}
}

func (f *Feed) offerGreeks(ev gex.GreeksUpdate) {
	select {
	case f.greeks <- ev:
	default:
		f.dropped++
	}
}

func (f *Feed) offerSummary(ev gex.SummaryUpdate) {
	select {
	case f.summaries <- ev:
	default:
		f.dropped++
	}
}
