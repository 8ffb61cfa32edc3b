package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUSCIS serves status pages for known receipt numbers and an empty page otherwise
func fakeUSCIS(t *testing.T, statuses map[string]string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())

		status, ok := statuses[r.PostForm.Get("appReceiptNum")]
		if !ok {
			fmt.Fprint(w, `<html><body><div>USCIS</div></body></html>`)
			return
		}

		fmt.Fprintf(w, `<html><body><div>USCIS</div><div><form>
<div><div><div><div><div>menu</div><div><div>a</div><div>b</div>
<div><h1>%s</h1><p>Details for %s</p></div>
</div></div></div></div></div></form></div></body></html>`, status, r.PostForm.Get("appReceiptNum"))
	}))
}

// fakeTelegram accepts any token and records sent texts
func fakeTelegram(t *testing.T, texts *[]string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"casewatch","username":"casewatch_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			*texts = append(*texts, r.PostForm.Get("text"))
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"},"text":"ok"}}`)
		default:
			fmt.Fprint(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
		}
	}))
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	viper.Reset()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func TestRunCheck_EndToEnd(t *testing.T) {
	uscisSrv := fakeUSCIS(t, map[string]string{"EAC9999999999": "Case Was Received"})
	defer uscisSrv.Close()

	var texts []string
	tgSrv := fakeTelegram(t, &texts)
	defer tgSrv.Close()
	t.Setenv("CASEWATCH_TELEGRAM_ENDPOINT", tgSrv.URL+"/bot%s/%s")

	history := filepath.Join(t.TempDir(), "history.csv")
	args := []string{
		"-r", "EAC9999999999,WAC1234567890,BAD",
		"-f", history,
		"-t", "123:abc,1",
		"--endpoint", uscisSrv.URL,
		"--no-color",
	}

	// First run: everything is new
	stdout, stderr, err := execute(t, args...)
	require.NoError(t, err)
	assert.Equal(t,
		"EAC9999999999: Case Was Received, Details for EAC9999999999\n"+
			"WAC1234567890: Case not found, Seems like USCIS does not have a case for receipt number WAC1234567890\n",
		stdout)
	assert.Contains(t, stderr, "not in the correct format")
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "Immigration Update! USCIS case EAC9999999999 changed.")

	// Second run: nothing changed, nothing sent, history still grows
	_, _, err = execute(t, args...)
	require.NoError(t, err)
	assert.Len(t, texts, 2)

	data, err := os.ReadFile(history)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))
}

func TestRunCheck_WithoutHistoryOrTelegram(t *testing.T) {
	uscisSrv := fakeUSCIS(t, map[string]string{"IOE0123456789": "Case Is Approved"})
	defer uscisSrv.Close()

	stdout, _, err := execute(t, "--endpoint", uscisSrv.URL, "--no-color", "IOE0123456789")
	require.NoError(t, err)
	assert.Equal(t, "IOE0123456789: Case Is Approved, Details for IOE0123456789\n", stdout)
}

func TestRunCheck_ConfigErrors(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		errContains string
	}{
		{"no receipts", []string{}, "at least one receipt number is required"},
		{"telegram with one value", []string{"-t", "123:abc", "EAC9999999999"}, "--telegram expects BOT_TOKEN and CHAT_ID"},
		{"telegram values separated by a space", []string{"-t", "123:abc", "@channel", "-r", "EAC9999999999"}, "-t BOT_TOKEN -t CHAT_ID"},
		{"bad log level", []string{"-l", "chatty", "EAC9999999999"}, "invalid log level"},
		{"negative retries", []string{"--retries", "-1", "EAC9999999999"}, "invalid retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestRootCmd_HelpShowsTelegramForms(t *testing.T) {
	long := newRootCmd().Long

	assert.Contains(t, long, "-t BOT_TOKEN,CHAT_ID")
	assert.Contains(t, long, "-t BOT_TOKEN -t CHAT_ID")
}

func TestRunCheck_LookupFailureStillWritesOtherResults(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		fmt.Fprint(w, `<html><body></body></html>`)
	}))
	defer srv.Close()

	history := filepath.Join(t.TempDir(), "history.csv")

	_, stderr, err := execute(t, "--endpoint", srv.URL, "-f", history, "--no-color", "EAC9999999999", "WAC1234567890")
	require.Error(t, err)
	assert.Contains(t, stderr, "status check failed")

	data, readErr := os.ReadFile(history)
	require.NoError(t, readErr)
	assert.NotContains(t, string(data), "EAC9999999999")
	assert.Contains(t, string(data), "WAC1234567890")
}

func TestRunCheck_TelegramDownDoesNotBlockHistory(t *testing.T) {
	uscisSrv := fakeUSCIS(t, map[string]string{"EAC9999999999": "Case Was Received"})
	defer uscisSrv.Close()

	tgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
	}))
	defer tgSrv.Close()
	t.Setenv("CASEWATCH_TELEGRAM_ENDPOINT", tgSrv.URL+"/bot%s/%s")

	history := filepath.Join(t.TempDir(), "history.csv")

	_, stderr, err := execute(t, "--endpoint", uscisSrv.URL, "-f", history, "-t", "bad:token,1", "--no-color", "EAC9999999999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram setup")
	assert.Contains(t, stderr, "notifications disabled for this run")

	data, readErr := os.ReadFile(history)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "EAC9999999999,Case Was Received")
}
