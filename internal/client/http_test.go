package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newVisitedAPI returns an API whose session already received a visit frame.
func newVisitedAPI(t *testing.T, handler http.Handler) (*API, *Session) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewSession("")
	require.True(t, s.apply(VisitEvent{Header: Header{Kind: EventVisit}, Secret: "visit-1"}))
	return NewAPI(s, APIOptions{BaseURL: srv.URL + "/api"}, nil), s
}

func markSynced(s *Session) {
	s.setModsSynced(true)
	s.setSavesSynced(true)
}

func TestLoginStoresConfirmedToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "visit-1", r.PostForm.Get("visitSecret"))
		assert.Equal(t, "old-token", r.PostForm.Get("userToken"))
		assert.Equal(t, "false", r.PostForm.Get("reconnected"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"userToken":"new-token"}`)
	})
	api, s := newVisitedAPI(t, mux)
	s.setUserToken("old-token")

	require.NoError(t, api.Login(context.Background()))
	assert.Equal(t, "new-token", s.UserToken())
}

func TestLoginOmitsMissingToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		_, present := r.PostForm["userToken"]
		assert.False(t, present)
		io.WriteString(w, `{"userToken":"fresh"}`)
	})
	api, s := newVisitedAPI(t, mux)

	require.NoError(t, api.Login(context.Background()))
	assert.Equal(t, "fresh", s.UserToken())
}

func TestOperationsRequireVisitSecret(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	defer srv.Close()
	api := NewAPI(NewSession(""), APIOptions{BaseURL: srv.URL}, nil)
	ctx := context.Background()

	assert.ErrorIs(t, api.Login(ctx), ErrNoVisitSecret)
	assert.ErrorIs(t, api.ToggleMod(ctx, 1, true), ErrNoVisitSecret)
	assert.ErrorIs(t, api.DeleteSaveSlot(ctx, "slot1"), ErrNoVisitSecret)
	assert.ErrorIs(t, api.StartInstance(ctx, StartOptions{}), ErrNoVisitSecret)
	assert.Zero(t, hits.Load())
}

func TestToggleModFailureRestoresSyncFlag(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/mod/toggle", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "12", r.PostForm.Get("modId"))
		assert.Equal(t, "true", r.PostForm.Get("enabled"))
		http.Error(w, "mod is locked", http.StatusConflict)
	})
	api, s := newVisitedAPI(t, mux)
	markSynced(s)

	err := api.ToggleMod(context.Background(), 12, true)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, http.StatusConflict, opErr.StatusCode)
	assert.Equal(t, "/mod/toggle", opErr.Endpoint)
	assert.Contains(t, opErr.Body, "mod is locked")
	assert.True(t, s.ModsSynced())
}

func TestDeleteModSuccessLeavesFlagUnsynced(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/mod/delete", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "3", r.PostForm.Get("modId"))
	})
	api, s := newVisitedAPI(t, mux)
	markSynced(s)

	require.NoError(t, api.DeleteMod(context.Background(), 3))
	assert.False(t, s.ModsSynced(), "the mods push re-syncs the flag")
	assert.True(t, s.SavesSynced())
}

func TestDeleteSaveSlot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/save/delete", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "slot4", r.PostForm.Get("save"))
		http.Error(w, "no such slot", http.StatusNotFound)
	})
	api, s := newVisitedAPI(t, mux)
	markSynced(s)

	err := api.DeleteSaveSlot(context.Background(), "slot4")
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.True(t, s.SavesSynced())
}

func TestUploadModRejectsOversizedFileLocally(t *testing.T) {
	var hits atomic.Int32
	api, s := newVisitedAPI(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	markSynced(s)

	err := api.UploadMod(context.Background(), Mod{
		Name:     "huge.zip",
		FilePath: "/does/not/matter.zip",
		Size:     300 << 20,
	}, nil)

	var sizeErr *SizeLimitError
	require.ErrorAs(t, err, &sizeErr)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, MaxModSize, sizeErr.Limit)
	assert.Zero(t, hits.Load())
	assert.True(t, s.ModsSynced())
}

func TestUploadSaveRejectsOversizedFileLocally(t *testing.T) {
	var hits atomic.Int32
	api, _ := newVisitedAPI(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))

	err := api.UploadSave(context.Background(), Save{Name: "w.zip", Size: MaxSaveSize + 1, Slot: "slot1"}, nil)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Zero(t, hits.Load())
}

func writeFixture(t *testing.T, name string, size int) (string, []byte) {
	t.Helper()
	data := bytes.Repeat([]byte("factorio"), size/8+1)[:size]
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path, data
}

func TestUploadModStreamsMultipartWithProgress(t *testing.T) {
	path, data := writeFixture(t, "rail-tools_1.0.zip", 100_000)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/mod/upload", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "visit-1", r.FormValue("visitSecret"))
		assert.Equal(t, "100000", r.FormValue("size"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "rail-tools_1.0.zip", hdr.Filename)
		assert.Equal(t, zipContentType, hdr.Header.Get("Content-Type"))
		got, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})
	api, s := newVisitedAPI(t, mux)
	markSynced(s)

	var last int64
	var calls int
	err := api.UploadMod(context.Background(), Mod{Name: "rail-tools_1.0.zip", FilePath: path, Size: int64(len(data))},
		func(done int64) {
			assert.GreaterOrEqual(t, done, last)
			last = done
			calls++
		})

	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), last)
	assert.Positive(t, calls)
	assert.False(t, s.ModsSynced())
}

func TestUploadProgressCappedAtDeclaredSize(t *testing.T) {
	path, _ := writeFixture(t, "world.zip", 4096)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/save/upload", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "slot2", r.FormValue("save"))
	})
	api, _ := newVisitedAPI(t, mux)

	var last int64
	err := api.UploadSave(context.Background(), Save{Name: "world.zip", FilePath: path, Size: 1000, Slot: "slot2"},
		func(done int64) { last = done })
	require.NoError(t, err)
	assert.Equal(t, int64(1000), last)
}

func TestUploadSaveFailureRestoresSyncFlag(t *testing.T) {
	path, _ := writeFixture(t, "world.zip", 512)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/save/upload", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		http.Error(w, "quota exceeded", http.StatusForbidden)
	})
	api, s := newVisitedAPI(t, mux)
	markSynced(s)

	err := api.UploadSave(context.Background(), Save{Name: "world.zip", FilePath: path, Size: 512, Slot: "slot1"}, nil)
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Contains(t, opErr.Body, "quota exceeded")
	assert.True(t, s.SavesSynced())
}

func TestDownloadSaveSlotWritesFileInChunks(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 3*downloadChunkSize+100)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/save/download", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "slot1", r.PostForm.Get("save"))
		w.Write(payload)
	})
	api, s := newVisitedAPI(t, mux)
	markSynced(s)

	dst := filepath.Join(t.TempDir(), "slot1.zip")
	var progress []int64
	require.NoError(t, api.DownloadSaveSlot(context.Background(), "slot1", dst, func(done int64) {
		progress = append(progress, done)
	}))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	require.NotEmpty(t, progress)
	assert.Equal(t, int64(len(payload)), progress[len(progress)-1])
	assert.True(t, s.SavesSynced())
}

func TestDownloadSaveSlotNon200(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/save/download", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slot is empty", http.StatusBadRequest)
	})
	api, s := newVisitedAPI(t, mux)
	markSynced(s)

	dst := filepath.Join(t.TempDir(), "slot1.zip")
	err := api.DownloadSaveSlot(context.Background(), "slot1", dst, nil)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Contains(t, opErr.Body, "slot is empty")
	assert.NoFileExists(t, dst)
	assert.True(t, s.SavesSynced())
}

func TestStartStopAndConsole(t *testing.T) {
	var stopped, command atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/api/instance/start", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "eu-central-1", r.PostForm.Get("region"))
		assert.Equal(t, "1.1.110", r.PostForm.Get("version"))
		assert.Equal(t, "slot1", r.PostForm.Get("save"))
		assert.Equal(t, "true", r.PostForm.Get("ipv6"))
		io.WriteString(w, `{"launchId":987}`)
	})
	mux.HandleFunc("/api/instance/console", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "987", r.PostForm.Get("launchId"))
		command.Store(r.PostForm.Get("input"))
	})
	mux.HandleFunc("/api/instance/stop", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		stopped.Store(r.PostForm.Get("launchId"))
	})
	api, s := newVisitedAPI(t, mux)
	ctx := context.Background()

	assert.ErrorIs(t, api.StopInstance(ctx), ErrNoLaunchID)
	assert.ErrorIs(t, api.SendCommand(ctx, "/players"), ErrNoLaunchID)

	require.NoError(t, api.StartInstance(ctx, StartOptions{
		Region: "eu-central-1", Version: "1.1.110", Save: "slot1", IPv6: true,
	}))
	id, ok := s.LaunchID()
	require.True(t, ok)
	assert.Equal(t, "987", id)

	require.NoError(t, api.SendCommand(ctx, "/players"))
	assert.Equal(t, "/players", command.Load())

	require.NoError(t, api.StopInstance(ctx))
	assert.Equal(t, "987", stopped.Load())
}

func TestStartInstanceFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/instance/start", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "region unavailable", http.StatusServiceUnavailable)
	})
	api, s := newVisitedAPI(t, mux)

	err := api.StartInstance(context.Background(), StartOptions{Region: "x"})
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "start instance", opErr.Op)
	_, ok := s.LaunchID()
	assert.False(t, ok)
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/mod/toggle", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer close(release)

	s := NewSession("")
	s.apply(VisitEvent{Header: Header{Kind: EventVisit}, Secret: "v"})
	markSynced(s)
	api := NewAPI(s, APIOptions{BaseURL: srv.URL + "/api", RequestTimeout: 50 * time.Millisecond}, nil)

	err := api.ToggleMod(context.Background(), 1, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, s.ModsSynced())
}
