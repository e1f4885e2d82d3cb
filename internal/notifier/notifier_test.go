package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VCPSentinel/internal/model"
)

type fakeTelegram struct {
	mu        sync.Mutex
	messages  []map[string]string
	documents []map[string]string
	updates   []byte
}

func (f *fakeTelegram) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/botTOKEN/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		var m map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		f.mu.Lock()
		f.messages = append(f.messages, m)
		f.mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/botTOKEN/sendDocument", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		file, hdr, err := r.FormFile("document")
		if !assert.NoError(t, err) {
			return
		}
		content, _ := io.ReadAll(file)
		f.mu.Lock()
		f.documents = append(f.documents, map[string]string{
			"chat_id": r.FormValue("chat_id"),
			"caption": r.FormValue("caption"),
			"name":    hdr.Filename,
			"content": string(content),
		})
		f.mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/botTOKEN/getUpdates", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		body := f.updates
		f.updates = []byte(`{"ok":true,"result":[]}`)
		f.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		w.Write(body)
	})
	return mux
}

func newFake(t *testing.T) (*fakeTelegram, *TelegramNotifier) {
	f := &fakeTelegram{updates: []byte(`{"ok":true,"result":[]}`)}
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	n := &TelegramNotifier{BotToken: "TOKEN", ChatID: "100", APIURL: srv.URL, Client: srv.Client()}
	return f, n
}

func TestSendTo(t *testing.T) {
	f, n := newFake(t)
	require.NoError(t, n.Send("hello"))
	require.NoError(t, n.SendTo("200", "<b>hi</b>"))

	require.Len(t, f.messages, 2)
	assert.Equal(t, "100", f.messages[0]["chat_id"])
	assert.Equal(t, "200", f.messages[1]["chat_id"])
	assert.Equal(t, "HTML", f.messages[1]["parse_mode"])
}

func TestSendDocument(t *testing.T) {
	f, n := newFake(t)
	res := &model.ScanResult{ScanDate: "2025-03-14", Symbols: []string{"2330.TW", "6488.TWO"}, UniverseSize: 1800}

	require.NoError(t, n.SendDocumentTo("100", ResultFileName(res.ScanDate), ResultFile(res), FormatScanCaption(res)))

	require.Len(t, f.documents, 1)
	doc := f.documents[0]
	assert.Equal(t, "100", doc["chat_id"])
	assert.Equal(t, "TW_VCP_20250314.txt", doc["name"])
	assert.Equal(t, "2330.TW\n6488.TWO", doc["content"])
	assert.Contains(t, doc["caption"], "2 of 1800 symbols qualified")
}

func TestSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()
	n := &TelegramNotifier{BotToken: "TOKEN", ChatID: "1", APIURL: srv.URL, Client: srv.Client()}

	err := n.Send("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "chat not found")
}

func TestStartPolling_RepliesToOriginChat(t *testing.T) {
	f, n := newFake(t)
	f.updates = []byte(`{"ok":true,"result":[
		{"update_id":7,"message":{"text":" /help ","chat":{"id":555}}},
		{"update_id":8}
	]}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 1)
	go n.StartPolling(ctx, func(chatID, cmd string) string {
		got <- chatID + " " + cmd
		return "usage"
	})

	select {
	case v := <-got:
		assert.Equal(t, "555 /help", v)
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called")
	}
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.messages) == 1 && f.messages[0]["chat_id"] == "555"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestFormatters(t *testing.T) {
	empty := &model.ScanResult{ScanDate: "2025-03-14", BatchesFailed: 2}
	assert.Contains(t, FormatEmptyScan(empty), "No symbols match")
	assert.Contains(t, FormatEmptyScan(empty), "2 batch(es)")

	d := &model.DiagnosticResult{Report: "Close 1 < SMA 2 & rising"}
	assert.Equal(t, "Close 1 &lt; SMA 2 &amp; rising", FormatDiagnostic(d))

	assert.Equal(t, "❌ scan failed: a &lt;b&gt;", FormatError("scan", errors.New("a <b>")))
	assert.Contains(t, FormatScanAck("2025-03-14", false), "2025-03-14")
}

func TestRetry(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 0, func() error {
		calls++
		return errors.New("boom")
	})
	assert.ErrorContains(t, err, "all 1 attempts failed")
	assert.Equal(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls = 0
	err = retry(ctx, 3, func() error {
		calls++
		return errors.New("boom")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)

	calls = 0
	err = retry(context.Background(), 3, func() error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}
