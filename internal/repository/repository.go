// Package repository clones remote Git repositories into temporary directories.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"
)

// ErrSubpathNotFound reports a subpath that does not exist in the checkout.
var ErrSubpathNotFound = errors.New("subpath not found in repository")

const (
	// DefaultShallowDepth fetches only the selected commit.
	DefaultShallowDepth = 1

	temporaryDirectoryPattern = "digest-"

	// tokenUsername accompanies an access token in HTTP basic auth. Hosts
	// read the token from the password and ignore the name.
	tokenUsername = "x-access-token"
	httpScheme    = "http://"
	httpsScheme   = "https://"

	errorTemporaryDirectoryFormat = "create temporary directory: %w"
	errorCloneFormat              = "clone '%s': %w"
	errorWorktreeFormat           = "open worktree of '%s': %w"
	errorCheckoutFormat           = "checkout %s: %w"
	errorHeadFormat               = "resolve HEAD of '%s': %w"
	errorSubpathFormat            = "%w: %s"

	debugCloneStarted  = "cloning repository"
	debugCloneFinished = "repository cloned"
	warningCleanup     = "failed to remove temporary clone"
)

// Request selects what to clone.
type Request struct {
	URL string
	// Name becomes the checkout directory name, so the digest root is labeled with it.
	Name    string
	Branch  string
	Commit  string
	Tag     string
	Subpath string
	// Token authenticates HTTP clones of private repositories.
	Token string
}

// Checkout is a cloned working tree.
type Checkout struct {
	// Root is the working tree directory.
	Root string
	// Path is Root joined with the requested subpath.
	Path string
	// Commit is the hash of the checked out HEAD.
	Commit string
	Branch string
	Tag    string

	temporaryDirectory string
	logger             *zap.Logger
}

// Cleanup removes the temporary directory holding the checkout.
func (checkout Checkout) Cleanup() error {
	if checkout.temporaryDirectory == "" {
		return nil
	}
	removeError := os.RemoveAll(checkout.temporaryDirectory)
	if removeError != nil && checkout.logger != nil {
		checkout.logger.Warn(warningCleanup, zap.String("directory", checkout.temporaryDirectory), zap.Error(removeError))
	}
	return removeError
}

// Cloner clones repositories with go-git.
type Cloner struct {
	// TemporaryDirectory is the parent of every clone. Empty means os.TempDir.
	TemporaryDirectory string
	// ShallowDepth limits fetched history for branch clones. Zero fetches everything.
	ShallowDepth int
	// Progress receives the remote's progress messages when set.
	Progress io.Writer
	Logger   *zap.Logger
}

// NewCloner returns a Cloner that performs shallow clones.
func NewCloner(logger *zap.Logger) Cloner {
	return Cloner{ShallowDepth: DefaultShallowDepth, Logger: logger}
}

// Clone fetches request.URL into a fresh temporary directory. The returned
// Checkout must be cleaned up by the caller, also when a later step fails.
// On error nothing is left on disk.
func (cloner Cloner) Clone(ctx context.Context, request Request) (Checkout, error) {
	logger := cloner.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	temporaryDirectory, temporaryError := os.MkdirTemp(cloner.TemporaryDirectory, temporaryDirectoryPattern)
	if temporaryError != nil {
		return Checkout{}, fmt.Errorf(errorTemporaryDirectoryFormat, temporaryError)
	}
	checkout := Checkout{
		Root:               filepath.Join(temporaryDirectory, checkoutName(request)),
		Branch:             request.Branch,
		Tag:                request.Tag,
		temporaryDirectory: temporaryDirectory,
		logger:             logger,
	}

	logger.Debug(debugCloneStarted, zap.String("url", request.URL), zap.String("branch", request.Branch), zap.String("commit", request.Commit), zap.String("tag", request.Tag), zap.Bool("authenticated", request.Token != ""))
	cloned, cloneError := git.PlainCloneContext(ctx, checkout.Root, false, cloner.cloneOptions(request))
	if cloneError != nil {
		_ = checkout.Cleanup()
		return Checkout{}, fmt.Errorf(errorCloneFormat, request.URL, cloneError)
	}

	if request.Commit != "" {
		worktree, worktreeError := cloned.Worktree()
		if worktreeError != nil {
			_ = checkout.Cleanup()
			return Checkout{}, fmt.Errorf(errorWorktreeFormat, request.URL, worktreeError)
		}
		checkoutError := worktree.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(request.Commit), Force: true})
		if checkoutError != nil {
			_ = checkout.Cleanup()
			return Checkout{}, fmt.Errorf(errorCheckoutFormat, request.Commit, checkoutError)
		}
	}

	head, headError := cloned.Head()
	if headError != nil {
		_ = checkout.Cleanup()
		return Checkout{}, fmt.Errorf(errorHeadFormat, request.URL, headError)
	}
	checkout.Commit = head.Hash().String()
	if checkout.Branch == "" && request.Commit == "" && request.Tag == "" && head.Name().IsBranch() {
		checkout.Branch = head.Name().Short()
	}

	checkout.Path = checkout.Root
	if request.Subpath != "" {
		checkout.Path = filepath.Join(checkout.Root, filepath.FromSlash(request.Subpath))
		if _, statError := os.Stat(checkout.Path); statError != nil {
			_ = checkout.Cleanup()
			if errors.Is(statError, fs.ErrNotExist) {
				return Checkout{}, fmt.Errorf(errorSubpathFormat, ErrSubpathNotFound, request.Subpath)
			}
			return Checkout{}, statError
		}
	}

	logger.Debug(debugCloneFinished, zap.String("url", request.URL), zap.String("commit", checkout.Commit))
	return checkout, nil
}

// cloneOptions builds the go-git options for request. A commit needs the
// full history of the default branch to be checked out afterwards. A tag is
// fetched through its own refspec, so tag following stays at the default.
func (cloner Cloner) cloneOptions(request Request) *git.CloneOptions {
	options := &git.CloneOptions{
		URL:          request.URL,
		SingleBranch: true,
		Tags:         git.NoTags,
		Progress:     cloner.Progress,
	}
	switch {
	case request.Branch != "":
		options.ReferenceName = plumbing.NewBranchReferenceName(request.Branch)
	case request.Tag != "":
		options.ReferenceName = plumbing.NewTagReferenceName(request.Tag)
		options.Tags = git.InvalidTagMode
	}
	if request.Token != "" && isHTTPURL(request.URL) {
		options.Auth = &http.BasicAuth{Username: tokenUsername, Password: request.Token}
	}
	if request.Commit == "" {
		options.Depth = cloner.ShallowDepth
	} else {
		options.SingleBranch = false
	}
	return options
}

func isHTTPURL(rawURL string) bool {
	lowered := strings.ToLower(rawURL)
	return strings.HasPrefix(lowered, httpsScheme) || strings.HasPrefix(lowered, httpScheme)
}

func checkoutName(request Request) string {
	if request.Name != "" {
		return request.Name
	}
	return filepath.Base(request.URL)
}
