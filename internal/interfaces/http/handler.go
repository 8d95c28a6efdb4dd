package httpinterface

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ordex-daemon/internal/core/application"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
)

const maxBodySize = 1 << 20

type handler struct {
	marketplaceSvc application.MarketplaceService
}

// NewRouter returns the http handler serving the marketplace API.
func NewRouter(marketplaceSvc application.MarketplaceService) http.Handler {
	h := &handler{marketplaceSvc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/info", h.info)

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", h.listOpenListings)
			r.Post("/", h.createListing)
			r.Get("/{orderID}", h.getListing)
			r.Post("/{orderID}/signature", h.submitSellerSignature)
			r.Post("/{orderID}/cancel", h.cancelListing)
			r.Post("/{orderID}/purchases", h.preparePurchase)
			r.Post(
				"/{orderID}/purchases/{attemptID}/finalize", h.finalizePurchase,
			)
		})

		r.Get("/purchases/{attemptID}", h.getPurchaseAttempt)
	})

	return r
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) info(w http.ResponseWriter, _ *http.Request) {
	info := h.marketplaceSvc.Info()
	writeJSON(w, http.StatusOK, marketInfo{
		Network:             info.Network,
		TreasuryAddress:     info.TreasuryAddress,
		MarketFeePercentage: info.MarketFeePercentage,
		MinMarketFee:        info.MinMarketFee,
		SigHashPolicy:       info.Policy.String(),
		MaxFeeRate:          info.MaxFeeRate,
		ListingExpiry:       info.ListingExpiry,
	})
}

func (h *handler) createListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	asset, err := domain.ParseOutpoint(req.AssetOutpoint)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("invalid asset outpoint: %w", err))
		return
	}

	l, err := h.marketplaceSvc.CreateListing(
		r.Context(), asset, req.PayoutAddress, req.PriceSats,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createListingResponse{
		OrderID:         l.ID,
		ListingTemplate: l.ListingPsbt,
		SigHashPolicy:   l.Policy.String(),
		Listing:         listingInfo(l.ListingSummary).toJSON(),
	})
}

func (h *handler) submitSellerSignature(w http.ResponseWriter, r *http.Request) {
	var req submitSignatureRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.SignedTemplate == "" {
		writeBadRequest(w, errors.New("missing signed template"))
		return
	}

	l, err := h.marketplaceSvc.SubmitSellerSignature(
		r.Context(), chi.URLParam(r, "orderID"), req.SignedTemplate,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listingInfo(*l).toJSON())
}

func (h *handler) listOpenListings(w http.ResponseWriter, r *http.Request) {
	pageNumber, err := parseQueryInt(r, "page")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	pageSize, err := parseQueryInt(r, "size")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	page := domain.NewPage(pageNumber, pageSize)

	list, err := h.marketplaceSvc.ListOpenListings(r.Context(), page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listings{
		Listings: listingList(list).toJSON(),
		Page:     page.Number,
		Size:     page.Size,
	})
}

func (h *handler) getListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.marketplaceSvc.GetListing(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listingInfo(*l).toJSON())
}

func (h *handler) cancelListing(w http.ResponseWriter, r *http.Request) {
	var req cancelListingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	l, err := h.marketplaceSvc.CancelListing(
		r.Context(), chi.URLParam(r, "orderID"), req.PayoutAddress, req.Proof,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listingInfo(*l).toJSON())
}

func (h *handler) preparePurchase(w http.ResponseWriter, r *http.Request) {
	var req preparePurchaseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	purchaseReq, err := req.toPurchaseRequest(chi.URLParam(r, "orderID"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	info, err := h.marketplaceSvc.PreparePurchase(r.Context(), purchaseReq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, purchaseInfo(*info).toJSON())
}

func (h *handler) finalizePurchase(w http.ResponseWriter, r *http.Request) {
	var req finalizePurchaseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.BuyerSignedPsbt == "" {
		writeBadRequest(w, errors.New("missing buyer signed psbt"))
		return
	}

	txid, err := h.marketplaceSvc.FinalizePurchase(
		r.Context(), chi.URLParam(r, "orderID"), chi.URLParam(r, "attemptID"),
		req.BuyerSignedPsbt,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, finalizePurchaseResponse{txid})
}

func (h *handler) getPurchaseAttempt(w http.ResponseWriter, r *http.Request) {
	info, err := h.marketplaceSvc.GetPurchaseAttempt(
		r.Context(), chi.URLParam(r, "attemptID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, purchaseInfo(*info).toJSON())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("missing request body")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseQueryInt(r *http.Request, key string) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(str)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s param", key)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}
