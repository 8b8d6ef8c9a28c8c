package models

// Asset описывает актив, доступный для обмена на BTC.
//
// Балансы хранятся в целых минимальных единицах актива:
// для BTC это сатоши (1e8 на монету), для акций - микро-доли
// (1e6 на акцию), для золота - микро-тройские-унции (1e6 на унцию).
// Дробные минимальные единицы не существуют нигде в системе.
type Asset struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Kind   string `json:"kind"` // crypto, stock, metal

	// UnitScale - число минимальных единиц в одной целой единице
	// (той, за которую котируется цена в USD)
	UnitScale int64 `json:"unit_scale"`

	// OracleID - идентификатор инструмента во внешнем API цен
	OracleID string `json:"-"`

	// QuotedPerGram - внешний API котирует цену за грамм
	// (для золота); перед использованием цена пересчитывается
	// в тройские унции
	QuotedPerGram bool `json:"-"`
}

// Типы активов
const (
	AssetKindCrypto = "crypto"
	AssetKindStock  = "stock"
	AssetKindMetal  = "metal"
)

const (
	// SymbolBTC - базовый актив симулятора
	SymbolBTC = "BTC"

	// SatsPerBTC - сатоши в одной монете
	SatsPerBTC int64 = 100_000_000

	// MicroUnitScale - минимальные единицы для акций и металлов
	MicroUnitScale int64 = 1_000_000

	// GramsPerTroyOunce - пересчет цены золота за грамм в цену
	// за тройскую унцию
	GramsPerTroyOunce = 31.1035

	// StartingBalanceSats - стартовый баланс каждого пользователя (1 BTC)
	StartingBalanceSats int64 = 100_000_000
)

// assetRegistry - статический каталог поддерживаемых активов.
// BTC присутствует как базовый актив, все сделки идут через него.
var assetRegistry = map[string]Asset{
	SymbolBTC: {Symbol: SymbolBTC, Name: "Bitcoin", Kind: AssetKindCrypto, UnitScale: SatsPerBTC, OracleID: "bitcoin"},
	"AAPL":    {Symbol: "AAPL", Name: "Apple Inc.", Kind: AssetKindStock, UnitScale: MicroUnitScale, OracleID: "aapl"},
	"MSFT":    {Symbol: "MSFT", Name: "Microsoft Corp.", Kind: AssetKindStock, UnitScale: MicroUnitScale, OracleID: "msft"},
	"TSLA":    {Symbol: "TSLA", Name: "Tesla Inc.", Kind: AssetKindStock, UnitScale: MicroUnitScale, OracleID: "tsla"},
	"NVDA":    {Symbol: "NVDA", Name: "NVIDIA Corp.", Kind: AssetKindStock, UnitScale: MicroUnitScale, OracleID: "nvda"},
	"SPY":     {Symbol: "SPY", Name: "SPDR S&P 500 ETF", Kind: AssetKindStock, UnitScale: MicroUnitScale, OracleID: "spy"},
	"XAU":     {Symbol: "XAU", Name: "Gold (troy oz)", Kind: AssetKindMetal, UnitScale: MicroUnitScale, OracleID: "gold", QuotedPerGram: true},
}

// LookupAsset возвращает актив по символу.
// Символ должен быть в верхнем регистре.
func LookupAsset(symbol string) (Asset, bool) {
	a, ok := assetRegistry[symbol]
	return a, ok
}

// SupportedAssets возвращает все активы, доступные для покупки
// (без базового BTC), в стабильном порядке.
func SupportedAssets() []Asset {
	order := []string{"AAPL", "MSFT", "TSLA", "NVDA", "SPY", "XAU"}
	assets := make([]Asset, 0, len(order))
	for _, s := range order {
		assets = append(assets, assetRegistry[s])
	}
	return assets
}
