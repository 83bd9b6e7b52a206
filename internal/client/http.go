package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// REST endpoints, relative to the API base URL.
const (
	pathLogin           = "/user/login"
	pathModToggle       = "/mod/toggle"
	pathModDelete       = "/mod/delete"
	pathModUpload       = "/mod/upload"
	pathSaveDelete      = "/save/delete"
	pathSaveDownload    = "/save/download"
	pathSaveUpload      = "/save/upload"
	pathInstanceStart   = "/instance/start"
	pathInstanceStop    = "/instance/stop"
	pathInstanceConsole = "/instance/console"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultStopTimeout    = time.Hour
)

// API makes REST calls against the service on behalf of a Session. Every
// call needs the session's visit secret; instance calls also need its
// launch id.
type API struct {
	rest           *resty.Client
	session        *Session
	requestTimeout time.Duration
	stopTimeout    time.Duration
	log            *zap.Logger
}

// APIOptions tunes an API. Zero values fall back to defaults.
type APIOptions struct {
	BaseURL        string
	RequestTimeout time.Duration
	StopTimeout    time.Duration
	UserAgent      string
}

// NewAPI creates an API targeting opts.BaseURL (e.g. "https://factorio.zone/api").
func NewAPI(session *Session, opts APIOptions, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "fzm/1.0"
	}

	// No client-level timeout or retries: deadlines are per call and retry
	// policy belongs to the caller.
	rest := resty.New().
		SetBaseURL(opts.BaseURL).
		SetRetryCount(0).
		SetHeader("User-Agent", opts.UserAgent)

	return &API{
		rest:           rest,
		session:        session,
		requestTimeout: opts.RequestTimeout,
		stopTimeout:    opts.StopTimeout,
		log:            log,
	}
}

// Login exchanges the stored user token (possibly empty) and the visit
// secret for a confirmed user token, which is stored in the session.
func (a *API) Login(ctx context.Context) error {
	secret, err := a.visitSecret()
	if err != nil {
		return err
	}
	form := map[string]string{
		"visitSecret": secret,
		"reconnected": "false",
	}
	if token := a.session.UserToken(); token != "" {
		form["userToken"] = token
	}

	resp, err := a.post(ctx, "login", pathLogin, form, a.requestTimeout)
	if err != nil {
		return err
	}
	var body struct {
		UserToken string `json:"userToken"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return fmt.Errorf("login: decode response: %w", err)
	}
	if body.UserToken == "" {
		return fmt.Errorf("login: response without userToken")
	}
	a.session.setUserToken(body.UserToken)
	a.log.Info("logged in")
	return nil
}

// ToggleMod enables or disables an uploaded mod. The mods flag stays
// unsynced until the service pushes the new list.
func (a *API) ToggleMod(ctx context.Context, modID int64, enabled bool) error {
	secret, err := a.visitSecret()
	if err != nil {
		return err
	}
	return a.mutate(a.session.setModsSynced, func() error {
		_, err := a.post(ctx, "toggle mod", pathModToggle, map[string]string{
			"visitSecret": secret,
			"modId":       strconv.FormatInt(modID, 10),
			"enabled":     strconv.FormatBool(enabled),
		}, a.requestTimeout)
		return err
	})
}

// DeleteMod removes an uploaded mod.
func (a *API) DeleteMod(ctx context.Context, modID int64) error {
	secret, err := a.visitSecret()
	if err != nil {
		return err
	}
	return a.mutate(a.session.setModsSynced, func() error {
		_, err := a.post(ctx, "delete mod", pathModDelete, map[string]string{
			"visitSecret": secret,
			"modId":       strconv.FormatInt(modID, 10),
		}, a.requestTimeout)
		return err
	})
}

// DeleteSaveSlot clears a save slot.
func (a *API) DeleteSaveSlot(ctx context.Context, slot string) error {
	secret, err := a.visitSecret()
	if err != nil {
		return err
	}
	return a.mutate(a.session.setSavesSynced, func() error {
		_, err := a.post(ctx, "delete save", pathSaveDelete, map[string]string{
			"visitSecret": secret,
			"save":        slot,
		}, a.requestTimeout)
		return err
	})
}

// StartInstance launches a server and records the returned launch id.
func (a *API) StartInstance(ctx context.Context, opts StartOptions) error {
	secret, err := a.visitSecret()
	if err != nil {
		return err
	}
	resp, err := a.post(ctx, "start instance", pathInstanceStart, map[string]string{
		"visitSecret": secret,
		"region":      opts.Region,
		"version":     opts.Version,
		"save":        opts.Save,
		"ipv6":        strconv.FormatBool(opts.IPv6),
	}, a.requestTimeout)
	if err != nil {
		return err
	}
	var body struct {
		LaunchID json.RawMessage `json:"launchId"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return fmt.Errorf("start instance: decode response: %w", err)
	}
	id := rawString(body.LaunchID)
	if id == "" {
		return fmt.Errorf("start instance: response without launchId")
	}
	a.session.setLaunchID(id)
	a.log.Info("instance starting",
		zap.String("launch_id", id),
		zap.String("region", opts.Region),
		zap.String("version", opts.Version),
		zap.String("save", opts.Save))
	return nil
}

// StopInstance stops the current instance. Shutdown can take a long time, so
// this call uses the extended stop timeout.
func (a *API) StopInstance(ctx context.Context) error {
	secret, launchID, err := a.instanceCredentials()
	if err != nil {
		return err
	}
	_, err = a.post(ctx, "stop instance", pathInstanceStop, map[string]string{
		"visitSecret": secret,
		"launchId":    launchID,
	}, a.stopTimeout)
	return err
}

// SendCommand sends a line to the running instance's console.
func (a *API) SendCommand(ctx context.Context, command string) error {
	secret, launchID, err := a.instanceCredentials()
	if err != nil {
		return err
	}
	_, err = a.post(ctx, "send console command", pathInstanceConsole, map[string]string{
		"visitSecret": secret,
		"launchId":    launchID,
		"input":       command,
	}, a.requestTimeout)
	return err
}

// mutate clears a sync flag for the duration of fn and restores it only if
// fn fails. On success the confirming push from the service sets it again.
func (a *API) mutate(setSynced func(bool), fn func() error) error {
	setSynced(false)
	if err := fn(); err != nil {
		setSynced(true)
		return err
	}
	return nil
}

func (a *API) post(ctx context.Context, op, path string, form map[string]string, timeout time.Duration) (*resty.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := a.rest.R().
		SetContext(ctx).
		SetFormData(form).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("%s: POST %s: %w", op, path, err)
	}
	if !resp.IsSuccess() {
		return nil, &OperationError{
			Op:         op,
			Endpoint:   path,
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}
	return resp, nil
}

func (a *API) visitSecret() (string, error) {
	secret := a.session.VisitSecret()
	if secret == "" {
		return "", ErrNoVisitSecret
	}
	return secret, nil
}

func (a *API) instanceCredentials() (secret, launchID string, err error) {
	if secret, err = a.visitSecret(); err != nil {
		return "", "", err
	}
	launchID, ok := a.session.LaunchID()
	if !ok {
		return "", "", ErrNoLaunchID
	}
	return secret, launchID, nil
}
