// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package extension

import (
	"net/rpc"
	"sync"

	hashiplug "github.com/hashicorp/go-plugin"

	"github.com/shiori-reader/shiori/pkg/manga"
)

// Handshake is the go-plugin handshake configuration. Both the host and
// process extensions must use the same values.
var Handshake = hashiplug.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "SHIORI_EXTENSION",
	MagicCookieValue: "shiori-v1",
}

// RPCPluginName is the dispense key for the extension plugin.
const RPCPluginName = "extension"

// RPCPlugin implements go-plugin's Plugin interface over net/rpc.
// On the extension side Impl carries the implementation; on the host
// side the client stub returned by Dispense satisfies Extension.
type RPCPlugin struct {
	Impl Extension
}

// Server returns the RPC server wrapping the implementation.
// Called on the extension process side.
func (p *RPCPlugin) Server(*hashiplug.MuxBroker) (any, error) {
	return &rpcServer{impl: p.Impl}, nil
}

// Client returns the host-side stub satisfying Extension.
func (*RPCPlugin) Client(_ *hashiplug.MuxBroker, c *rpc.Client) (any, error) {
	return &rpcClient{client: c}, nil
}

// Wire types. Exported so net/rpc registers the methods that use them;
// nil pointers are transmitted as absent and decode back to nil.

// IdentityReply carries the extension's identity over the wire.
type IdentityReply struct {
	ID          string
	Name        string
	Version     string
	Author      string
	Description string
	Capability  Capability
}

// MangaArgs carries a manga-loaded notification.
type MangaArgs struct {
	Manga *manga.Manga
}

// ChapterArgs carries chapter-scoped notifications.
type ChapterArgs struct {
	Chapter *manga.Chapter
	Manga   *manga.Manga
}

// PageArgs carries a page payload for transformation.
type PageArgs struct {
	Data      []byte
	PageIndex int
}

// PageReply carries a page transformation result. Replaced distinguishes
// "replace with Data" from "keep the original" since gob cannot round-trip
// a nil slice reliably.
type PageReply struct {
	Data     []byte
	Replaced bool
}

// rpcServer runs inside the extension process.
type rpcServer struct {
	impl Extension
}

func (s *rpcServer) Identity(_ struct{}, reply *IdentityReply) error {
	*reply = IdentityReply{
		ID:          s.impl.ID(),
		Name:        s.impl.Name(),
		Version:     s.impl.Version(),
		Author:      s.impl.Author(),
		Description: s.impl.Description(),
		Capability:  s.impl.Capability(),
	}
	return nil
}

func (s *rpcServer) Init(_ struct{}, _ *struct{}) error {
	// The host context cannot cross the process boundary; process
	// extensions initialize against a nil context.
	return s.impl.Init(nil)
}

func (s *rpcServer) Destroy(_ struct{}, _ *struct{}) error {
	return s.impl.Destroy()
}

func (s *rpcServer) OnMangaLoaded(args MangaArgs, _ *struct{}) error {
	return s.impl.OnMangaLoaded(args.Manga)
}

func (s *rpcServer) OnChapterLoaded(args ChapterArgs, _ *struct{}) error {
	return s.impl.OnChapterLoaded(args.Chapter, args.Manga)
}

func (s *rpcServer) OnPageLoaded(args PageArgs, reply *PageReply) error {
	out, err := s.impl.OnPageLoaded(args.Data, args.PageIndex)
	if err != nil {
		return err
	}
	reply.Data = out
	reply.Replaced = out != nil
	return nil
}

func (s *rpcServer) OnReadingComplete(args ChapterArgs, _ *struct{}) error {
	return s.impl.OnReadingComplete(args.Chapter, args.Manga)
}

func (s *rpcServer) IsEnabled(_ struct{}, reply *bool) error {
	*reply = s.impl.IsEnabled()
	return nil
}

// rpcClient is the host-side stub. Identity is fetched once and cached;
// hook calls go over the wire per invocation.
type rpcClient struct {
	client   *rpc.Client
	once     sync.Once
	identity IdentityReply
}

var _ Extension = (*rpcClient)(nil)

func (c *rpcClient) ident() IdentityReply {
	c.once.Do(func() {
		// A dead plugin process leaves the zero identity; the host
		// registers under the manifest identifier regardless, and the
		// unreachable instance self-vetoes through IsEnabled.
		_ = c.client.Call("Plugin.Identity", struct{}{}, &c.identity)
	})
	return c.identity
}

func (c *rpcClient) ID() string             { return c.ident().ID }
func (c *rpcClient) Name() string           { return c.ident().Name }
func (c *rpcClient) Version() string        { return c.ident().Version }
func (c *rpcClient) Author() string         { return c.ident().Author }
func (c *rpcClient) Description() string    { return c.ident().Description }
func (c *rpcClient) Capability() Capability { return c.ident().Capability }

func (c *rpcClient) Init(*Context) error {
	return c.client.Call("Plugin.Init", struct{}{}, &struct{}{})
}

func (c *rpcClient) Destroy() error {
	return c.client.Call("Plugin.Destroy", struct{}{}, &struct{}{})
}

func (c *rpcClient) OnMangaLoaded(m *manga.Manga) error {
	return c.client.Call("Plugin.OnMangaLoaded", MangaArgs{Manga: m}, &struct{}{})
}

func (c *rpcClient) OnChapterLoaded(ch *manga.Chapter, m *manga.Manga) error {
	return c.client.Call("Plugin.OnChapterLoaded", ChapterArgs{Chapter: ch, Manga: m}, &struct{}{})
}

func (c *rpcClient) OnPageLoaded(data []byte, pageIndex int) ([]byte, error) {
	var reply PageReply
	if err := c.client.Call("Plugin.OnPageLoaded", PageArgs{Data: data, PageIndex: pageIndex}, &reply); err != nil {
		return nil, err
	}
	if !reply.Replaced {
		return nil, nil
	}
	return reply.Data, nil
}

func (c *rpcClient) OnReadingComplete(ch *manga.Chapter, m *manga.Manga) error {
	return c.client.Call("Plugin.OnReadingComplete", ChapterArgs{Chapter: ch, Manga: m}, &struct{}{})
}

func (c *rpcClient) IsEnabled() bool {
	var enabled bool
	if err := c.client.Call("Plugin.IsEnabled", struct{}{}, &enabled); err != nil {
		// An unreachable process cannot receive events; treat it as a
		// self-veto rather than failing dispatch.
		return false
	}
	return enabled
}
