// Package cmsclient assembles the session store, auth change broadcast,
// HTTP wrapper, auth facade, and per-resource services into one client for
// the dsm1918.de CMS backend. The default wiring persists the session to a
// per-user file and broadcasts auth changes in-process; both can be
// swapped, e.g. for the redis-backed implementations.
package cmsclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dsm1918/cms-client-go/api"
	"github.com/dsm1918/cms-client-go/auth"
	"github.com/dsm1918/cms-client-go/broadcast"
	bcastmem "github.com/dsm1918/cms-client-go/broadcast/memory"
	"github.com/dsm1918/cms-client-go/cms"
	"github.com/dsm1918/cms-client-go/session"
	"github.com/dsm1918/cms-client-go/session/file"
)

// Client is the assembled CMS client. All services share one session
// store, one broadcaster, and one HTTP wrapper, so a forced logout on any
// call is observed everywhere.
type Client struct {
	API  *api.Client
	Auth *auth.Manager

	Events      *cms.EventsService
	Galleries   *cms.GalleriesService
	Photos      *cms.PhotosService
	Reenactment *cms.ReenactmentService
	Contact     *cms.ContactService
	Users       *cms.UsersService

	store     session.Store
	bcast     broadcast.Broadcaster
	ownsStore bool
	ownsBcast bool
}

type config struct {
	store   session.Store
	bcast   broadcast.Broadcaster
	log     *slog.Logger
	apiOpts []api.Option
}

// Option configures the assembled client.
type Option func(*config)

// WithStore substitutes the session store. The caller keeps ownership and
// must Close it; the default file store is owned and closed by the Client.
func WithStore(s session.Store) Option {
	return func(c *config) { c.store = s }
}

// WithBroadcaster substitutes the auth change broadcaster. Ownership
// follows the same rule as WithStore.
func WithBroadcaster(b broadcast.Broadcaster) Option {
	return func(c *config) { c.bcast = b }
}

// WithHTTPClient substitutes the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.apiOpts = append(c.apiOpts, api.WithHTTPClient(hc)) }
}

// WithLogger sets the logger for the wrapper and the auth facade.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		c.log = log
		c.apiOpts = append(c.apiOpts, api.WithLogger(log))
	}
}

// WithTimeout sets the per-request timeout applied when the caller's
// context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.apiOpts = append(c.apiOpts, api.WithTimeout(d)) }
}

// WithGETCache enables the LRU cache for unauthenticated GET responses.
func WithGETCache(size int) Option {
	return func(c *config) { c.apiOpts = append(c.apiOpts, api.WithGETCache(size)) }
}

// WithSessionExpiredHook registers the hook invoked after a forced logout.
func WithSessionExpiredHook(fn func()) Option {
	return func(c *config) { c.apiOpts = append(c.apiOpts, api.WithSessionExpiredHook(fn)) }
}

// New assembles a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{store: cfg.store, bcast: cfg.bcast}

	if c.store == nil {
		path, err := file.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("cmsclient: resolve session path: %w", err)
		}
		fs, err := file.New(path)
		if err != nil {
			return nil, fmt.Errorf("cmsclient: open session store: %w", err)
		}
		c.store = fs
		c.ownsStore = true
	}
	if c.bcast == nil {
		c.bcast = bcastmem.New()
		c.ownsBcast = true
	}

	apiClient, err := api.New(baseURL, c.store, c.bcast, cfg.apiOpts...)
	if err != nil {
		c.closeOwned()
		return nil, err
	}
	c.API = apiClient

	var authOpts []auth.Option
	if cfg.log != nil {
		authOpts = append(authOpts, auth.WithLogger(cfg.log))
	}
	c.Auth = auth.New(apiClient, c.store, c.bcast, authOpts...)

	c.Events = cms.NewEventsService(apiClient)
	c.Galleries = cms.NewGalleriesService(apiClient)
	c.Photos = cms.NewPhotosService(apiClient)
	c.Reenactment = cms.NewReenactmentService(apiClient)
	c.Contact = cms.NewContactService(apiClient)
	c.Users = cms.NewUsersService(apiClient)

	return c, nil
}

// Subscribe registers a listener on the auth change broadcast.
func (c *Client) Subscribe() (broadcast.Subscription, error) {
	return c.bcast.Subscribe()
}

// Close releases the client and any store or broadcaster it created
// itself. Caller-supplied components are left open.
func (c *Client) Close() error {
	var errs []error
	if c.API != nil {
		errs = append(errs, c.API.Close())
	}
	errs = append(errs, c.closeOwned())
	return errors.Join(errs...)
}

func (c *Client) closeOwned() error {
	var errs []error
	if c.ownsBcast && c.bcast != nil {
		errs = append(errs, c.bcast.Close())
	}
	if c.ownsStore && c.store != nil {
		errs = append(errs, c.store.Close())
	}
	return errors.Join(errs...)
}
