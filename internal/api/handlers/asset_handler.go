package handlers

import (
	"net/http"

	"mib/internal/models"
)

// AssetHandler отдает каталог торгуемых активов.
//
// Endpoints:
// - GET /api/v1/assets - список активов, доступных для покупки за BTC
type AssetHandler struct{}

// NewAssetHandler создает новый AssetHandler
func NewAssetHandler() *AssetHandler {
	return &AssetHandler{}
}

// assetView - актив глазами клиента
type assetView struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	UnitScale int64  `json:"unit_scale"`
}

// GetAssets возвращает все активы, которые можно купить за BTC.
// Сам BTC в списке отсутствует - он базовая валюта.
//
// GET /api/v1/assets
func (h *AssetHandler) GetAssets(w http.ResponseWriter, r *http.Request) {
	assets := models.SupportedAssets()

	views := make([]assetView, 0, len(assets))
	for _, a := range assets {
		views = append(views, assetView{
			Symbol:    a.Symbol,
			Name:      a.Name,
			Kind:      a.Kind,
			UnitScale: a.UnitScale,
		})
	}

	writeJSON(w, http.StatusOK, views)
}
