package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/lightlink-network/ll-bridge-collector/database/models"
)

type depositItem struct {
	models.Deposit
	FormattedAmount string `json:"formatted_amount"`
}

type withdrawalItem struct {
	models.Withdrawal
	FormattedAmount string `json:"formatted_amount"`
}

func (s *Server) handleDepositsGet(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseQuery(r)
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.store.GetDeposits(r.Context(), filter, page)
	if err != nil {
		s.log.Error("failed to get deposits", "address", filter.Address, "error", err)
		ERROR(w, http.StatusInternalServerError, fmt.Errorf("failed to get deposits"))
		return
	}

	deposits, _ := result.Items.([]models.Deposit)
	items := make([]depositItem, 0, len(deposits))
	for _, d := range deposits {
		items = append(items, depositItem{Deposit: d, FormattedAmount: formatAmount(d.Amount, d.TokenDecimals)})
	}

	JSON(w, http.StatusOK, models.PaginatedResult{Items: items, TotalItems: result.TotalItems})
}

func (s *Server) handleWithdrawalsGet(unfinished bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, page, err := parseQuery(r)
		if err != nil {
			ERROR(w, http.StatusBadRequest, err)
			return
		}
		filter.Unfinished = unfinished

		result, err := s.store.GetWithdrawals(r.Context(), filter, page)
		if err != nil {
			s.log.Error("failed to get withdrawals", "address", filter.Address, "error", err)
			ERROR(w, http.StatusInternalServerError, fmt.Errorf("failed to get withdrawals"))
			return
		}

		withdrawals, _ := result.Items.([]models.Withdrawal)
		items := make([]withdrawalItem, 0, len(withdrawals))
		for _, wd := range withdrawals {
			items = append(items, withdrawalItem{Withdrawal: wd, FormattedAmount: formatAmount(wd.Amount, wd.TokenDecimals)})
		}

		JSON(w, http.StatusOK, models.PaginatedResult{Items: items, TotalItems: result.TotalItems})
	}
}

// parseQuery reads the address path parameter and the page and limit query
// parameters. Missing or invalid page and limit fall back to defaults.
func parseQuery(r *http.Request) (models.Filter, models.Page, error) {
	address := chi.URLParam(r, "address")
	if !common.IsHexAddress(address) {
		return models.Filter{}, models.Page{}, fmt.Errorf("invalid address %q", address)
	}

	page, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	if err != nil {
		page = 1
	}
	limit, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil {
		limit = models.DefaultPageLimit
	}

	filter := models.Filter{Address: common.HexToAddress(address).Hex()}
	return filter, models.NewPage(page, limit), nil
}

// formatAmount scales a raw integer amount by decimals. Unparseable amounts
// are returned unchanged.
func formatAmount(amount string, decimals uint8) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	return d.Shift(-int32(decimals)).String()
}
