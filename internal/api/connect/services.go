package connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	PlayerServiceName = "wave.v1.PlayerService"
	BrowseServiceName = "wave.v1.BrowseService"
	AdminServiceName  = "wave.v1.AdminService"
)

const (
	PlayerServiceLoadQueueProcedure    = "/" + PlayerServiceName + "/LoadQueue"
	PlayerServicePlayProcedure         = "/" + PlayerServiceName + "/Play"
	PlayerServicePlayFromListProcedure = "/" + PlayerServiceName + "/PlayFromList"
	PlayerServicePauseProcedure        = "/" + PlayerServiceName + "/Pause"
	PlayerServiceResumeProcedure       = "/" + PlayerServiceName + "/Resume"
	PlayerServiceNextProcedure         = "/" + PlayerServiceName + "/Next"
	PlayerServicePreviousProcedure     = "/" + PlayerServiceName + "/Previous"
	PlayerServiceGetStatusProcedure    = "/" + PlayerServiceName + "/GetStatus"
	PlayerServiceSubscribeProcedure    = "/" + PlayerServiceName + "/Subscribe"

	BrowseServiceGetRankingProcedure        = "/" + BrowseServiceName + "/GetRanking"
	BrowseServiceGetRankingStateProcedure   = "/" + BrowseServiceName + "/GetRankingState"
	BrowseServiceListContextTracksProcedure = "/" + BrowseServiceName + "/ListContextTracks"

	AdminServiceInvalidateRankingProcedure = "/" + AdminServiceName + "/InvalidateRanking"
	AdminServiceGetStatsProcedure          = "/" + AdminServiceName + "/GetStats"
)

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{WithJSON()}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{WithJSON()}, opts...)
}

// NewPlayerServiceHandler builds an HTTP handler for PlayerService and
// returns the path to mount it on.
func NewPlayerServiceHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(PlayerServiceLoadQueueProcedure, connect.NewUnaryHandler(PlayerServiceLoadQueueProcedure, svc.LoadQueue, opts...))
	mux.Handle(PlayerServicePlayProcedure, connect.NewUnaryHandler(PlayerServicePlayProcedure, svc.Play, opts...))
	mux.Handle(PlayerServicePlayFromListProcedure, connect.NewUnaryHandler(PlayerServicePlayFromListProcedure, svc.PlayFromList, opts...))
	mux.Handle(PlayerServicePauseProcedure, connect.NewUnaryHandler(PlayerServicePauseProcedure, svc.Pause, opts...))
	mux.Handle(PlayerServiceResumeProcedure, connect.NewUnaryHandler(PlayerServiceResumeProcedure, svc.Resume, opts...))
	mux.Handle(PlayerServiceNextProcedure, connect.NewUnaryHandler(PlayerServiceNextProcedure, svc.Next, opts...))
	mux.Handle(PlayerServicePreviousProcedure, connect.NewUnaryHandler(PlayerServicePreviousProcedure, svc.Previous, opts...))
	mux.Handle(PlayerServiceGetStatusProcedure, connect.NewUnaryHandler(PlayerServiceGetStatusProcedure, svc.GetStatus, opts...))
	mux.Handle(PlayerServiceSubscribeProcedure, connect.NewServerStreamHandler(PlayerServiceSubscribeProcedure, svc.Subscribe, opts...))
	return "/" + PlayerServiceName + "/", mux
}

// NewBrowseServiceHandler builds an HTTP handler for BrowseService.
func NewBrowseServiceHandler(svc *BrowseService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(BrowseServiceGetRankingProcedure, connect.NewUnaryHandler(BrowseServiceGetRankingProcedure, svc.GetRanking, opts...))
	mux.Handle(BrowseServiceGetRankingStateProcedure, connect.NewUnaryHandler(BrowseServiceGetRankingStateProcedure, svc.GetRankingState, opts...))
	mux.Handle(BrowseServiceListContextTracksProcedure, connect.NewUnaryHandler(BrowseServiceListContextTracksProcedure, svc.ListContextTracks, opts...))
	return "/" + BrowseServiceName + "/", mux
}

// NewAdminServiceHandler builds an HTTP handler for AdminService.
func NewAdminServiceHandler(svc *AdminService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(AdminServiceInvalidateRankingProcedure, connect.NewUnaryHandler(AdminServiceInvalidateRankingProcedure, svc.InvalidateRanking, opts...))
	mux.Handle(AdminServiceGetStatsProcedure, connect.NewUnaryHandler(AdminServiceGetStatsProcedure, svc.GetStats, opts...))
	return "/" + AdminServiceName + "/", mux
}

// PlayerServiceClient is a client for PlayerService.
type PlayerServiceClient struct {
	loadQueue    *connect.Client[LoadQueueRequest, StatusResponse]
	play         *connect.Client[PlayRequest, StatusResponse]
	playFromList *connect.Client[PlayFromListRequest, StatusResponse]
	pause        *connect.Client[Empty, StatusResponse]
	resume       *connect.Client[Empty, StatusResponse]
	next         *connect.Client[Empty, StatusResponse]
	previous     *connect.Client[Empty, StatusResponse]
	getStatus    *connect.Client[Empty, StatusResponse]
	subscribe    *connect.Client[Empty, Notification]
}

// NewPlayerServiceClient creates a PlayerService client for the server at baseURL.
func NewPlayerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PlayerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &PlayerServiceClient{
		loadQueue:    connect.NewClient[LoadQueueRequest, StatusResponse](httpClient, baseURL+PlayerServiceLoadQueueProcedure, opts...),
		play:         connect.NewClient[PlayRequest, StatusResponse](httpClient, baseURL+PlayerServicePlayProcedure, opts...),
		playFromList: connect.NewClient[PlayFromListRequest, StatusResponse](httpClient, baseURL+PlayerServicePlayFromListProcedure, opts...),
		pause:        connect.NewClient[Empty, StatusResponse](httpClient, baseURL+PlayerServicePauseProcedure, opts...),
		resume:       connect.NewClient[Empty, StatusResponse](httpClient, baseURL+PlayerServiceResumeProcedure, opts...),
		next:         connect.NewClient[Empty, StatusResponse](httpClient, baseURL+PlayerServiceNextProcedure, opts...),
		previous:     connect.NewClient[Empty, StatusResponse](httpClient, baseURL+PlayerServicePreviousProcedure, opts...),
		getStatus:    connect.NewClient[Empty, StatusResponse](httpClient, baseURL+PlayerServiceGetStatusProcedure, opts...),
		subscribe:    connect.NewClient[Empty, Notification](httpClient, baseURL+PlayerServiceSubscribeProcedure, opts...),
	}
}

func (c *PlayerServiceClient) LoadQueue(ctx context.Context, req *connect.Request[LoadQueueRequest]) (*connect.Response[StatusResponse], error) {
	return c.loadQueue.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Play(ctx context.Context, req *connect.Request[PlayRequest]) (*connect.Response[StatusResponse], error) {
	return c.play.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) PlayFromList(ctx context.Context, req *connect.Request[PlayFromListRequest]) (*connect.Response[StatusResponse], error) {
	return c.playFromList.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Pause(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StatusResponse], error) {
	return c.pause.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Resume(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StatusResponse], error) {
	return c.resume.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Next(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StatusResponse], error) {
	return c.next.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Previous(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StatusResponse], error) {
	return c.previous.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) GetStatus(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StatusResponse], error) {
	return c.getStatus.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Subscribe(ctx context.Context, req *connect.Request[Empty]) (*connect.ServerStreamForClient[Notification], error) {
	return c.subscribe.CallServerStream(ctx, req)
}

// BrowseServiceClient is a client for BrowseService.
type BrowseServiceClient struct {
	getRanking        *connect.Client[GetRankingRequest, RankingResponse]
	getRankingState   *connect.Client[GetRankingRequest, RankingStateResponse]
	listContextTracks *connect.Client[ListContextTracksRequest, ContextTracksResponse]
}

// NewBrowseServiceClient creates a BrowseService client for the server at baseURL.
func NewBrowseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *BrowseServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &BrowseServiceClient{
		getRanking:        connect.NewClient[GetRankingRequest, RankingResponse](httpClient, baseURL+BrowseServiceGetRankingProcedure, opts...),
		getRankingState:   connect.NewClient[GetRankingRequest, RankingStateResponse](httpClient, baseURL+BrowseServiceGetRankingStateProcedure, opts...),
		listContextTracks: connect.NewClient[ListContextTracksRequest, ContextTracksResponse](httpClient, baseURL+BrowseServiceListContextTracksProcedure, opts...),
	}
}

func (c *BrowseServiceClient) GetRanking(ctx context.Context, req *connect.Request[GetRankingRequest]) (*connect.Response[RankingResponse], error) {
	return c.getRanking.CallUnary(ctx, req)
}

func (c *BrowseServiceClient) GetRankingState(ctx context.Context, req *connect.Request[GetRankingRequest]) (*connect.Response[RankingStateResponse], error) {
	return c.getRankingState.CallUnary(ctx, req)
}

func (c *BrowseServiceClient) ListContextTracks(ctx context.Context, req *connect.Request[ListContextTracksRequest]) (*connect.Response[ContextTracksResponse], error) {
	return c.listContextTracks.CallUnary(ctx, req)
}

// AdminServiceClient is a client for AdminService.
type AdminServiceClient struct {
	invalidateRanking *connect.Client[InvalidateRankingRequest, InvalidateRankingResponse]
	getStats          *connect.Client[Empty, StatsResponse]
}

// NewAdminServiceClient creates an AdminService client for the server at baseURL.
func NewAdminServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AdminServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &AdminServiceClient{
		invalidateRanking: connect.NewClient[InvalidateRankingRequest, InvalidateRankingResponse](httpClient, baseURL+AdminServiceInvalidateRankingProcedure, opts...),
		getStats:          connect.NewClient[Empty, StatsResponse](httpClient, baseURL+AdminServiceGetStatsProcedure, opts...),
	}
}

func (c *AdminServiceClient) InvalidateRanking(ctx context.Context, req *connect.Request[InvalidateRankingRequest]) (*connect.Response[InvalidateRankingResponse], error) {
	return c.invalidateRanking.CallUnary(ctx, req)
}

func (c *AdminServiceClient) GetStats(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StatsResponse], error) {
	return c.getStats.CallUnary(ctx, req)
}
