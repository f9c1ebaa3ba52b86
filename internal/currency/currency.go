package currency

// Code is a 3-letter currency code as used by the upstream rate provider.
// Codes are comparable values and are used as map keys throughout the engine.
type Code string

// fiatCodes lists every supported fiat currency in declaration order.
// The order is fixed and drives deterministic list rendering downstream.
var fiatCodes = []Code{
	"AED", "AFN", "ALL", "AMD", "AOA", "ARS", "AUD", "AWG", "AZN", "BAM",
	"BBD", "BDT", "BGN", "BHD", "BIF", "BMD", "BND", "BOB", "BRL", "BSD",
	"BTN", "BWP", "BYN", "BYR", "BZD", "CAD", "CDF", "CHF", "CLF", "CLP",
	"CNY", "COP", "CRC", "CUC", "CUP", "CVE", "CZK", "DJF", "DKK", "DOP",
	"DZD", "EGP", "ERN", "ETB", "EUR", "FJD", "FKP", "GBP", "GEL", "GGP",
	"GHS", "GIP", "GMD", "GNF", "GTQ", "GYD", "HKD", "HNL", "HRK", "HTG",
	"HUF", "IDR", "ILS", "IMP", "INR", "IQD", "IRR", "ISK", "JEP", "JMD",
	"JOD", "JPY", "KES", "KGS", "KHR", "KMF", "KPW", "KRW", "KWD", "KYD",
	"KZT", "LAK", "LBP", "LKR", "LRD", "LSL", "LTL", "LVL", "LYD", "MAD",
	"MDL", "MGA", "MKD", "MMK", "MNT", "MOP", "MRO", "MUR", "MVR", "MWK",
	"MXN", "MYR", "MZN", "NAD", "NGN", "NIO", "NOK", "NPR", "NZD", "OMR",
	"PAB", "PEN", "PGK", "PHP", "PKR", "PLN", "PYG", "QAR", "RON", "RSD",
	"RUB", "RWF", "SAR", "SBD", "SCR", "SDG", "SEK", "SGD", "SHP", "SLL",
	"SOS", "SRD", "STD", "SVC", "SYP", "SZL", "THB", "TJS", "TMT", "TND",
	"TOP", "TRY", "TTD", "TWD", "TZS", "UAH", "UGX", "USD", "UYU", "UZS",
	"VEF", "VND", "VUV", "WST", "YER", "ZAR", "ZMK", "ZMW", "ZWL",
}

// cryptoCodes is the fixed crypto-asset subset supported by the crypto
// conversion context.
var cryptoCodes = []Code{"BTC", "ETH", "BNB", "DOT", "AVAX", "LTC"}

var validCodes map[Code]struct{}

func init() {
	validCodes = make(map[Code]struct{}, len(fiatCodes)+len(cryptoCodes))
	for _, c := range fiatCodes {
		validCodes[c] = struct{}{}
	}
	for _, c := range cryptoCodes {
		validCodes[c] = struct{}{}
	}
}

// AllCodes returns every supported fiat currency code in declaration order.
func AllCodes() []Code {
	out := make([]Code, len(fiatCodes))
	copy(out, fiatCodes)
	return out
}

// CryptoCodes returns the supported crypto-asset codes in declaration order.
func CryptoCodes() []Code {
	out := make([]Code, len(cryptoCodes))
	copy(out, cryptoCodes)
	return out
}

// IsValid reports whether s is a supported fiat or crypto code.
func IsValid(s string) bool {
	_, ok := validCodes[Code(s)]
	return ok
}

// IsCrypto reports whether c belongs to the crypto subset.
func IsCrypto(c Code) bool {
	for _, cc := range cryptoCodes {
		if cc == c {
			return true
		}
	}
	return false
}

// CryptoListParam returns the crypto subset as the CSV value expected by the
// rate provider's currencies query parameter.
func CryptoListParam() string {
	s := ""
	for i, c := range cryptoCodes {
		if i > 0 {
			s += ","
		}
		s += string(c)
	}
	return s
}

func (c Code) String() string {
	return string(c)
}
