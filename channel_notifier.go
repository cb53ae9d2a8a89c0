package tether

import "context"

// ChannelNotifier serves changes from a caller-owned channel. It suits tests
// and custom sources that already produce changes.
//
// In scoped mode (NewChannelNotifier) the source may carry changes for many
// attributes: the observer receives only changes whose Path overlaps its own,
// and changes without a Path are stamped with the observed path. The source
// is not fanned out, so it should back a single observation. Closing it ends
// the observation.
//
// In direct mode (NewSyncChannelNotifier) the source channel is handed to the
// observer as is, so the test goroutine talks to the Property with no hop in
// between.
type ChannelNotifier struct {
	src    <-chan Change
	direct bool
}

// NewChannelNotifier creates a scoped ChannelNotifier over src.
func NewChannelNotifier(src <-chan Change) *ChannelNotifier {
	return &ChannelNotifier{src: src}
}

// NewSyncChannelNotifier creates a direct ChannelNotifier over src. Path and
// options passed to Observe are ignored.
func NewSyncChannelNotifier(src <-chan Change) *ChannelNotifier {
	return &ChannelNotifier{src: src, direct: true}
}

// Observe returns the changes for path. ObserveOptions are ignored: the
// source decides what is replayed.
func (n *ChannelNotifier) Observe(ctx context.Context, path string, _ ObserveOptions) (<-chan Change, error) {
	if n.direct {
		return n.src, nil
	}

	want, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		for {
			var c Change
			select {
			case <-ctx.Done():
				return
			case next, ok := <-n.src:
				if !ok {
					return
				}
				c = next
			}

			if c.Path == "" {
				c.Path = want.String()
			} else if got, err := ParsePath(c.Path); err != nil || !got.Overlaps(want) {
				continue
			}

			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Join combines a Notifier and an Accessor into an Object.
func Join(n Notifier, a Accessor) Object {
	return joined{Notifier: n, Accessor: a}
}

type joined struct {
	Notifier
	Accessor
}
