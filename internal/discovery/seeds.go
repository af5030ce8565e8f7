package discovery

// zecSeed is one compile-time network-B endpoint to reconcile into the
// registry. Hostnames and ports are drawn from the electriccoin.co /
// zec.rocks / Ywallet public lightwalletd fleet plus a sample of
// community-run nodes (community=true).
type zecSeed struct {
	Host      string
	Port      int
	Community bool
}

// zecSeeds is the static network-B seed list (spec.md §4.5 step 1).
var zecSeeds = []zecSeed{
	{"zec.rocks", 443, false},
	{"ap.zec.rocks", 443, false},
	{"eu.zec.rocks", 443, false},
	{"na.zec.rocks", 443, false},
	{"sa.zec.rocks", 443, false},
	{"zcashd.zec.rocks", 443, false},
	{"zaino.unsafe.zec.rocks", 443, false},
	{"zaino.testnet.unsafe.zec.rocks", 443, false},
	{"zcash.mysideoftheweb.com", 9067, false},
	{"lwd1.zcash-infra.com", 9067, false},
	{"lwd2.zcash-infra.com", 9067, false},
	{"lwd3.zcash-infra.com", 9067, false},
	{"lwd4.zcash-infra.com", 9067, false},
	{"lwd5.zcash-infra.com", 9067, false},
	{"lwd6.zcash-infra.com", 9067, false},
	{"lwd7.zcash-infra.com", 9067, false},
	{"lwd8.zcash-infra.com", 9067, false},
	{"testnet.zec.rocks", 443, false},
	{"lightwalletd.testnet.electriccoin.co", 9067, false},
	// Community-run nodes.
	{"zeclwnode.mylabtest.vip", 9067, true},
	{"z.arounder.co", 9067, true},
	{"z.arounder.co", 443, true},
	{"zec.alexxiy.top", 9067, true},
	{"zec.alexxiy.top", 8137, true},
	{"z.dptr.capital", 9067, true},
	{"z.miscthings.casa", 9067, true},
	{"z.miscthings.casa", 443, true},
	{"zlw.nodemaster.link", 9067, true},
	{"light.myown.party", 443, true},
	{"znode.roamerx.win", 443, true},
	{"zec.leoninedao.org", 8232, true},
	{"zec.leoninedao.org", 8137, true},
	{"zec.bitchat.channel", 8443, true},
	{"zaino.netstable.stream", 443, true},
	{"chmodas.org", 443, true},
	{"lightwallet.netstable.stream", 9067, true},
	{"lwal.podev.name", 443, true},
	{"lwal.podev.name", 9067, true},
	{"zcash.johndo.men", 443, true},
	{"zwallet.techly.fyi", 443, true},
}

// httpExplorer is one compile-time block-explorer landing page to
// register as an http-explorer Target on port 80 (spec.md §4.5 step 2).
type httpExplorer struct {
	Name string
	URL  string
}

// httpExplorers is the static block-explorer seed list. "blockchair"
// is the designated explorer whose landing page gets scraped for an
// additional onion mirror link.
var httpExplorers = []httpExplorer{
	{"blockchair", "https://blockchair.com"},
	{"blockstream", "https://blockstream.info"},
	{"zecrocks", "https://explorer.zec.rocks"},
	{"blockchain", "https://blockchain.com"},
	{"zcashexplorer", "https://mainnet.zcashexplorer.app"},
}

// designatedExplorer is the one httpExplorers entry Discovery scrapes
// for an onion mirror link.
const designatedExplorer = "blockchair"

// onionLinkPrefix is the known-good prefix an onion mirror link's href
// must match before Discovery trusts and registers it: an absolute
// http(s) URL, never a bare ".onion" fragment or a relative/javascript
// href that happens to satisfy a loose ".onion" substring match.
const onionLinkPrefix = "http"
