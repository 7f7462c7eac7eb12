package application

import "github.com/bnema/perch/internal/domain"

// maxThreadDepth bounds recursion through a conversation. Neither backend
// guarantees an acyclic reply graph, so a malformed response could
// otherwise recurse forever.
const maxThreadDepth = 25

// ThreadItem is one post in display order with its indentation depth.
// Direct replies to the root sit at depth 0.
type ThreadItem struct {
	Post  domain.Post
	Depth int
}

// BuildThread orders a flat reply list for indented display under root.
// A reply attaches to a node when its parent reference equals either the
// node's native id or its at:// URI, whichever the backend recorded.
// Traversal is pre-order and stable: siblings keep the input list's order.
func BuildThread(root domain.Post, replies []domain.Post) []ThreadItem {
	if len(replies) == 0 {
		return nil
	}
	items := make([]ThreadItem, 0, len(replies))
	appendReplies(&items, replies, root.NetworkID, root.URI, 0)
	return items
}

func appendReplies(items *[]ThreadItem, replies []domain.Post, parentID, parentURI string, depth int) {
	if depth > maxThreadDepth {
		return
	}
	for _, reply := range replies {
		if reply.ReplyToID == "" {
			continue
		}
		if reply.ReplyToID != parentID && (parentURI == "" || reply.ReplyToID != parentURI) {
			continue
		}
		*items = append(*items, ThreadItem{Post: reply, Depth: depth})
		appendReplies(items, replies, reply.NetworkID, reply.URI, depth+1)
	}
}
