package domain

import (
	"fmt"
	"strings"
)

// ResourceType classifies the kind of sub-resource a request is fetching.
// The numbering mirrors the host rendering engine's resource taxonomy so the
// interception hook can map its values directly.
type ResourceType uint8

const (
	ResourceDocument ResourceType = iota
	ResourceSubdocument
	ResourceStylesheet
	ResourceScript
	ResourceImage
	ResourceFont
	ResourceObject
	ResourceMedia
	ResourceWorker
	ResourcePrefetch
	ResourceFavicon
	ResourceXHR
	ResourcePing
	ResourceServiceWorker
	ResourceOther
)

// String returns the canonical lowercase name used in rule options.
func (t ResourceType) String() string {
	switch t {
	case ResourceDocument:
		return "document"
	case ResourceSubdocument:
		return "subdocument"
	case ResourceStylesheet:
		return "stylesheet"
	case ResourceScript:
		return "script"
	case ResourceImage:
		return "image"
	case ResourceFont:
		return "font"
	case ResourceObject:
		return "object"
	case ResourceMedia:
		return "media"
	case ResourceWorker:
		return "worker"
	case ResourcePrefetch:
		return "prefetch"
	case ResourceFavicon:
		return "favicon"
	case ResourceXHR:
		return "xmlhttprequest"
	case ResourcePing:
		return "ping"
	case ResourceServiceWorker:
		return "serviceworker"
	case ResourceOther:
		return "other"
	default:
		return fmt.Sprintf("ResourceType(%d)", t)
	}
}

// ParseResourceType converts a rule-option token into a ResourceType.
// Accepts the canonical names (case-insensitive) plus the "xhr" shorthand.
func ParseResourceType(s string) (ResourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "document":
		return ResourceDocument, nil
	case "subdocument":
		return ResourceSubdocument, nil
	case "stylesheet":
		return ResourceStylesheet, nil
	case "script":
		return ResourceScript, nil
	case "image":
		return ResourceImage, nil
	case "font":
		return ResourceFont, nil
	case "object":
		return ResourceObject, nil
	case "media":
		return ResourceMedia, nil
	case "worker":
		return ResourceWorker, nil
	case "prefetch":
		return ResourcePrefetch, nil
	case "favicon":
		return ResourceFavicon, nil
	case "xmlhttprequest", "xhr":
		return ResourceXHR, nil
	case "ping":
		return ResourcePing, nil
	case "serviceworker":
		return ResourceServiceWorker, nil
	case "other":
		return ResourceOther, nil
	default:
		return 0, fmt.Errorf("unsupported ResourceType: %q", s)
	}
}
