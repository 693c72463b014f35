package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// links holds the generated RFC 8288 Link header values keyed by operation
// path. AutoLinks replaces it; LinkTransformer reads it per response.
var links struct {
	sync.RWMutex
	byPath map[string][]string
}

// EntryPoint is the path that links to every collection.
const EntryPoint = "/health"

// AutoLinks walks the OpenAPI document and derives hypermedia links between
// the registered paths. Call it after every route is registered. Paths
// tagged "ui" are page plumbing and get no links.
func AutoLinks(api huma.API) {
	oapi := api.OpenAPI()
	m := linkSet{}

	type pathInfo struct {
		path string
		tags []string
	}
	var collections, items []pathInfo
	for p, pi := range oapi.Paths {
		tags := primaryTags(pi)
		if slices.Contains(tags, "ui") {
			continue
		}
		info := pathInfo{path: p, tags: tags}
		if strings.Contains(p, "{") {
			items = append(items, info)
		} else {
			collections = append(collections, info)
		}
	}
	_, hasQuery := oapi.Paths["/api/v1/query"]

	// Item to its collection.
	for _, item := range items {
		parent := path.Dir(item.path)
		if _, ok := oapi.Paths[parent]; ok {
			m.add(item.path, parent, "collection")
			m.add(item.path, parent, "up")
		}
		pi := oapi.Paths[item.path]
		if pi.Put != nil || pi.Patch != nil {
			m.add(item.path, item.path, "edit")
		}
	}

	for _, coll := range collections {
		// Collection to its item template.
		for _, item := range items {
			if path.Dir(item.path) == coll.path {
				m.add(coll.path, item.path, "item")
			}
		}
		if coll.path != EntryPoint {
			m.add(coll.path, EntryPoint, "up")
			m.add(EntryPoint, coll.path, lastSegment(coll.path))
		}
		if hasQuery {
			m.add(coll.path, "/api/v1/query", "search")
		}
		if oapi.Paths[coll.path].Post != nil {
			m.add(coll.path, coll.path, "create-form")
		}
		// Collections sharing a tag link to each other.
		for _, other := range collections {
			if other.path != coll.path && sharedTag(coll.tags, other.tags) {
				m.add(coll.path, other.path, lastSegment(other.path))
			}
		}
	}

	m.add(EntryPoint, "/openapi.json", "describedby")
	m.add(EntryPoint, "/openapi.json", "service-desc")
	m.add(EntryPoint, "/docs", "service-doc")

	// Per-resource schema.
	for _, all := range [][]pathInfo{collections, items} {
		for _, pi := range all {
			if ref := responseSchemaRef(oapi.Paths[pi.path]); ref != "" {
				m.add(pi.path, "/openapi.json#/components/schemas/"+ref, "describedby")
			}
		}
	}

	// Document the links on the operations themselves.
	for p, pi := range oapi.Paths {
		headers, ok := m[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op != nil {
				injectResponseLinks(op, headers)
			}
		}
	}

	links.Lock()
	links.byPath = m
	links.Unlock()
}

// LinkTransformer returns a Huma transformer that adds Link headers: the
// links AutoLinks derived for the operation, a self link on item paths, and
// whatever the body offers as a [Pager] or [Actor].
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		links.RLock()
		for _, link := range links.byPath[op.Path] {
			ctx.AppendHeader("Link", link)
		}
		links.RUnlock()

		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}
		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}

// RootLinks returns the entry point links, for the HTML page which is not a
// Huma operation.
func RootLinks() []string {
	links.RLock()
	defer links.RUnlock()
	return slices.Clone(links.byPath[EntryPoint])
}

type linkSet map[string][]string

func (m linkSet) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	if !slices.Contains(m[from], val) {
		m[from] = append(m[from], val)
	}
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func sharedTag(a, b []string) bool {
	for _, t := range a {
		if slices.Contains(b, t) {
			return true
		}
	}
	return false
}

func lastSegment(p string) string {
	return path.Base(strings.TrimRight(p, "/"))
}

// injectResponseLinks adds OpenAPI Link objects to the operation's 2xx
// response.
func injectResponseLinks(op *huma.Operation, headers []string) {
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  fmt.Sprintf("Related: %s", rel),
		}
	}
}

func responseSchemaRef(pi *huma.PathItem) string {
	if pi.Get == nil {
		return ""
	}
	for code, resp := range pi.Get.Responses {
		if !strings.HasPrefix(code, "2") {
			continue
		}
		for _, mt := range resp.Content {
			if mt.Schema != nil && mt.Schema.Ref != "" {
				return path.Base(mt.Schema.Ref)
			}
		}
	}
	return ""
}

// parseLinkHeader splits `<href>; rel="name"`.
func parseLinkHeader(h string) (rel, href string) {
	target, params, ok := strings.Cut(h, ";")
	if !ok {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(target), "<>")
	params = strings.TrimSpace(params)
	if v, ok := strings.CutPrefix(params, `rel="`); ok {
		rel, _, _ = strings.Cut(v, `"`)
	}
	return rel, href
}
