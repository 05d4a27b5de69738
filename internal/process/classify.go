package process

import "regexp"

// Kind tags a failure with a known cause.
type Kind string

const (
	KindNone Kind = ""

	KindRepositoryLocked     Kind = "repository-locked"
	KindAuthenticationFailed Kind = "authentication-failed"
	KindNotARepository       Kind = "not-a-repository"
	KindBadConfigFile        Kind = "bad-config-file"
	KindCannotCreatePipe     Kind = "cannot-create-pipe"
	KindRepositoryNotFound   Kind = "repository-not-found"
	KindCannotAccessRemote   Kind = "cannot-access-remote"
	KindBranchNotFullyMerged Kind = "branch-not-fully-merged"

	// Not produced by Classify; callers attach these explicitly.
	KindNoUserNameConfigured        Kind = "no-user-name-configured"
	KindNoUserEmailConfigured       Kind = "no-user-email-configured"
	KindNoRemoteRepositorySpecified Kind = "no-remote-repository-specified"
	KindNotAtRepositoryRoot         Kind = "not-at-repository-root"
	KindConflict                    Kind = "conflict"
	KindUnmergedChanges             Kind = "unmerged-changes"
	KindPushRejected                Kind = "push-rejected"
	KindRemoteConnectionError       Kind = "remote-connection-error"
	KindDirtyWorkTree               Kind = "dirty-work-tree"
	KindCannotOpenResource          Kind = "cannot-open-resource"
	KindExecutableNotFound          Kind = "executable-not-found"
)

type pattern struct {
	kind Kind
	re   *regexp.Regexp
}

// Order matters: the first matching pattern wins.
var patterns = []pattern{
	{KindRepositoryLocked, regexp.MustCompile(`Another git process seems to be running in this repository|If no other git process is currently running`)},
	{KindAuthenticationFailed, regexp.MustCompile(`Authentication failed`)},
	{KindNotARepository, regexp.MustCompile(`Not a git repository`)},
	{KindBadConfigFile, regexp.MustCompile(`bad config file`)},
	{KindCannotCreatePipe, regexp.MustCompile(`cannot make pipe for command substitution|cannot create standard input pipe`)},
	{KindRepositoryNotFound, regexp.MustCompile(`Repository not found`)},
	{KindCannotAccessRemote, regexp.MustCompile(`unable to access`)},
	{KindBranchNotFullyMerged, regexp.MustCompile(`branch '.+' is not fully merged`)},
}

// Classify maps stderr text to a Kind. It returns KindNone when nothing matches.
func Classify(stderr string) Kind {
	for _, p := range patterns {
		if p.re.MatchString(stderr) {
			return p.kind
		}
	}
	return KindNone
}
