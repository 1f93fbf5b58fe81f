package testdata

// GCMVector is a known AES-256-GCM encryption with a fixed nonce.
type GCMVector struct {
	Name       string
	Key        string // Hex
	Nonce      string // Hex
	Plaintext  string // Hex
	Ciphertext string // Hex
	Tag        string // Hex
}

// GCMVectors are test cases 13 and 14 of the GCM specification.
var GCMVectors = []GCMVector{
	{
		Name:       "empty plaintext",
		Key:        "0000000000000000000000000000000000000000000000000000000000000000",
		Nonce:      "000000000000000000000000",
		Plaintext:  "",
		Ciphertext: "",
		Tag:        "530f8afbc74536b9a963b4f1c4cb738b",
	},
	{
		Name:       "single zero block",
		Key:        "0000000000000000000000000000000000000000000000000000000000000000",
		Nonce:      "000000000000000000000000",
		Plaintext:  "00000000000000000000000000000000",
		Ciphertext: "cea7403d4d606b6e074ec5d3baf39d18",
		Tag:        "d0d1c8a799996bf0265b98b5d48ab919",
	},
}

// KDFVector is a known key derivation result.
type KDFVector struct {
	Name       string
	Passphrase string
	Salt       string
	Iterations int
	Key        string // Hex
}

// StaticKey is SHA-256 of the embedded application passphrase.
const StaticKey = "5a5aacff70f0a02c332c18958943bc370cc0f45cfaa30eeceec4d46e595c8b8b"

// KDFVectors for PBKDF2-SHA256 with NFKC-normalized passphrases.
var KDFVectors = []KDFVector{
	{
		Name:       "ascii passphrase",
		Passphrase: "correct horse",
		Salt:       "calcvault-salt",
		Iterations: 1000,
		Key:        "89c8a66f48fdbaa6c747f631ec7db2c4923782fd937e5f017b8eae6c0cfaea40",
	},
	{
		Name:       "ligature normalizes to ascii",
		Passphrase: "ﬁle",
		Salt:       "calcvault-salt",
		Iterations: 1000,
		Key:        "f7fc45715a9a31416958a34208682cb16dd5c80316ee4cf811cac391e009cd55",
	},
	{
		Name:       "plain ascii equivalent",
		Passphrase: "file",
		Salt:       "calcvault-salt",
		Iterations: 1000,
		Key:        "f7fc45715a9a31416958a34208682cb16dd5c80316ee4cf811cac391e009cd55",
	},
}
