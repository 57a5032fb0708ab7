package validator

import (
	"context"
	"fmt"

	"github.com/miekg/dns"
)

// ValidationContext owns the trust anchors, the upstream query capability and
// the shared caches. It is safe for concurrent use: the caches are internally
// locked, a Node is immutable once built, and concurrent walks at worst
// rebuild the same Node redundantly.
type ValidationContext struct {
	anchors  *TrustAnchors
	upstream Exchanger

	nodes       *nodeCache
	nsec3Hashes *nsec3HashCache
	isig        *sigCache // Signature cache for infrastructure lookups.
	usig        *sigCache // Signature cache for user query responses.
}

func NewValidationContext(anchors *TrustAnchors, upstream Exchanger) *ValidationContext {
	return &ValidationContext{
		anchors:     anchors,
		upstream:    upstream,
		nodes:       newNodeCache(DefaultNodeCacheCapacity),
		nsec3Hashes: newNsec3HashCache(DefaultNsec3HashCacheCapacity),
		isig:        newSigCache(DefaultInfraSigCacheCapacity),
		usig:        newSigCache(DefaultUserSigCacheCapacity),
	}
}

// GetNode returns the validated signing state at name, walking the delegation
// hierarchy down from the covering trust anchor and memoizing every step.
func (vc *ValidationContext) GetNode(ctx context.Context, name string) (*Node, error) {
	name = dns.CanonicalName(name)
	Debug(fmt.Sprintf("get node for [%s]", name))

	if node := vc.nodes.lookup(name); node != nil {
		return node, nil
	}

	ta := vc.anchors.Find(name)
	if ta == nil {
		// Without an anchor covering the name nothing can be proven either
		// way. The verdict applies to the whole namespace, so cache it at
		// the root.
		node := indeterminateNode(".", makeEDE(dns.ExtendedErrorCodeDNSSECIndeterminate, "no trust anchor covers the name"), MaxNodeValidity)
		vc.nodes.insert(".", node)
		return node, nil
	}

	if namesEqual(ta.Owner(), name) {
		node, err := vc.trustAnchorNode(ctx, ta)
		if err != nil {
			return nil, err
		}
		vc.nodes.insert(name, node)
		return node, nil
	}

	// Ascend from name's parent until a usable cached ancestor or the anchor
	// owner is found, queueing the skipped names root-closest first.
	node, queue, err := vc.findClosestNode(ctx, name, ta)
	if err != nil {
		return nil, err
	}

	// findClosestNode only returns non-intermediate nodes, so this is a
	// valid signer to start from.
	signer := node

	for {
		switch node.ValidationState() {
		case Secure:
			// Descend further.
		default:
			// A child can never be more trusted than its ancestor; stop
			// without issuing queries for the rest of the queue.
			return node, nil
		}

		if len(queue) == 0 {
			return node, nil
		}
		childName := queue[0]
		queue = queue[1:]

		node = vc.createChildNode(ctx, childName, signer)
		vc.nodes.insert(childName, node)
		if !node.Intermediate() {
			signer = node
		}
	}
}

// findClosestNode ascends from name's parent toward the anchor owner, checking
// the cache at each step. It returns the closest resolvable ancestor node and
// the names still to resolve below it, ordered root-closest first. Cached
// intermediate nodes are skipped: the descent needs a key-holding signer.
func (vc *ValidationContext) findClosestNode(ctx context.Context, name string, ta *TrustAnchor) (*Node, []string, error) {
	queue := []string{name}

	curr := parentName(name)
	for {
		if namesEqual(ta.Owner(), curr) {
			node, err := vc.trustAnchorNode(ctx, ta)
			if err != nil {
				return nil, nil, err
			}
			vc.nodes.insert(curr, node)
			return node, queue, nil
		}

		if node := vc.nodes.lookup(curr); node != nil && !node.Intermediate() {
			return node, queue, nil
		}

		queue = append([]string{curr}, queue...)
		curr = parentName(curr)
	}
}
