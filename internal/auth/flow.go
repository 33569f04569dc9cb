package auth

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"spotify-cli/internal/shared"
)

// DefaultTimeout bounds how long a flow waits for the browser callback.
const DefaultTimeout = 2 * time.Minute

// DefaultScopes are requested during authorization. They cover playback
// control, queue inspection, and the managed recommendations playlist.
var DefaultScopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopeUserTopRead,
	spotifyauth.ScopeUserReadRecentlyPlayed,
}

// FlowState identifies the authorization flow's position in its lifecycle.
type FlowState int

const (
	Idle FlowState = iota
	PortBound
	AwaitingCallback
	CodeReceived
	Exchanging
	Complete
	Failed
)

func (s FlowState) String() string {
	switch s {
	case Idle:
		return "idle"
	case PortBound:
		return "port_bound"
	case AwaitingCallback:
		return "awaiting_callback"
	case CodeReceived:
		return "code_received"
	case Exchanging:
		return "exchanging"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// NewOAuthConfig builds the oauth2 config for the Spotify accounts service.
//
// The redirect URL is filled in by the flow once a port is bound.
func NewOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       DefaultScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyauth.AuthURL,
			TokenURL:  spotifyauth.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// FlowOpts configures a [Flow]. Zero values fall back to defaults.
type FlowOpts struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	Endpoint     oauth2.Endpoint // defaults to the Spotify accounts service
	Ports        []int
	Timeout      time.Duration
	Logger       *log.Logger
	Output       io.Writer

	Allocate    func([]int) (net.Listener, int, error)
	OpenBrowser func(string) error
}

// Flow drives one browser-based authorization attempt through its state
// machine. A Flow is single use: Complete and Failed are terminal, and
// callers construct a new Flow to try again.
type Flow struct {
	config  *oauth2.Config
	ports   []int
	timeout time.Duration
	logger  *log.Logger
	output  io.Writer

	allocate    func([]int) (net.Listener, int, error)
	openBrowser func(string) error

	mu       sync.Mutex
	state    FlowState
	nonce    string
	verifier string
}

// NewFlow creates a Flow in the Idle state.
func NewFlow(opts FlowOpts) *Flow {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if len(opts.Ports) == 0 {
		opts.Ports = DefaultPorts
	}
	if len(opts.Scopes) == 0 {
		opts.Scopes = DefaultScopes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Endpoint.AuthURL == "" {
		opts.Endpoint = oauth2.Endpoint{
			AuthURL:   spotifyauth.AuthURL,
			TokenURL:  spotifyauth.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		}
	}
	if opts.Allocate == nil {
		opts.Allocate = Allocate
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Flow{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Scopes:       opts.Scopes,
			Endpoint:     opts.Endpoint,
		},
		ports:       opts.Ports,
		timeout:     opts.Timeout,
		logger:      shared.WithLogger(opts.Logger, "component", "authflow"),
		output:      opts.Output,
		allocate:    opts.Allocate,
		openBrowser: opts.OpenBrowser,
		state:       Idle,
	}
}

// State reports the flow's current position in the state machine.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Run executes the authorization flow end to end and returns the exchanged
// token pair.
//
// Every failure is terminal for this Flow; the bound port is released on all
// paths. There is no automatic retry: one port walk, one callback wait, one
// exchange attempt.
func (f *Flow) Run(ctx context.Context) (*TokenPair, error) {
	f.mu.Lock()
	if f.state != Idle {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: flow is %s, construct a new one", shared.ErrFlowFinished, f.state)
	}
	f.mu.Unlock()

	lis, port, err := f.allocate(f.ports)
	if err != nil {
		return nil, f.fail(err)
	}
	f.setState(PortBound)
	f.logger.Debug("bound callback port", "port", port)

	nonce, err := shared.GenerateState()
	if err != nil {
		lis.Close()
		return nil, f.fail(err)
	}

	f.mu.Lock()
	f.nonce = nonce
	f.verifier = oauth2.GenerateVerifier()
	f.config.RedirectURL = fmt.Sprintf("http://localhost:%d", port)
	authURL := f.config.AuthCodeURL(nonce, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(f.verifier))
	f.mu.Unlock()

	listener := NewListener(lis, nonce, f.logger)

	fmt.Fprintf(f.output, "→ Opening browser for Spotify authorization...\n")
	if err := f.openBrowser(authURL); err != nil {
		f.logger.Warnf("failed to open browser automatically %v", err)
		fmt.Fprintf(f.output, "⚠ Could not open browser automatically.\n")
		fmt.Fprintf(f.output, "Please open this URL in your browser:\n%s\n\n", authURL)
	}
	fmt.Fprintf(f.output, "→ Waiting for authorization (%s timeout)...\n", f.timeout)

	f.setState(AwaitingCallback)

	result, err := listener.AwaitCallback(ctx, f.timeout)
	if err != nil {
		return nil, f.fail(err)
	}
	if result.Err != nil {
		return nil, f.fail(result.Err)
	}

	f.setState(CodeReceived)

	f.setState(Exchanging)
	token, err := f.config.Exchange(ctx, result.Code, oauth2.VerifierOption(f.verifier))
	if err != nil {
		return nil, f.fail(fmt.Errorf("%w: %v", shared.ErrExchangeRejected, err))
	}

	pair := PairFromToken(token)
	f.setState(Complete)
	f.logger.Info("authorization complete", "expires_at", pair.ExpiresAt)

	return pair, nil
}

func (f *Flow) setState(s FlowState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Flow) fail(err error) error {
	f.setState(Failed)
	f.logger.Debug("authorization flow failed", "error", err)
	return err
}
