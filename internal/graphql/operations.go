package graphql

import "github.com/utafrali/storefront/internal/domain"

// Operation names, also used as span and metric labels.
const (
	OpLogin        = "Login"
	OpSignUp       = "SignUp"
	OpCurrentUser  = "CurrentUser"
	OpRefreshToken = "RefreshToken"
	OpProductList  = "ProductList"
	OpProduct      = "ProductDetail"
)

const userFields = `
	id
	email
	firstName
	lastName
	avatar {
		url
		alt
	}`

// LoginMutation exchanges credentials for a token pair.
const LoginMutation = `mutation Login($email: String!, $password: String!) {
	tokenCreate(email: $email, password: $password) {
		token
		refreshToken
		user {` + userFields + `
		}
		errors {
			field
			message
			code
		}
	}
}`

// SignUpMutation registers an account. It does not sign the user in.
const SignUpMutation = `mutation SignUp($email: String!, $password: String!, $redirectUrl: String!) {
	accountRegister(input: { email: $email, password: $password, redirectUrl: $redirectUrl }) {
		user {
			id
			email
			firstName
			lastName
		}
		errors {
			field
			message
			code
		}
	}
}`

// CurrentUserQuery returns the user the bearer token belongs to, or null.
const CurrentUserQuery = `query CurrentUser {
	me {` + userFields + `
	}
}`

// RefreshTokenMutation mints a new access token from a refresh token.
const RefreshTokenMutation = `mutation RefreshToken($refreshToken: String!) {
	tokenRefresh(refreshToken: $refreshToken) {
		token
		errors {
			field
			message
			code
		}
	}
}`

const priceFields = `
	gross {
		amount
		currency
	}`

// ProductListQuery pages through a channel's products.
const ProductListQuery = `query ProductList($first: Int!, $after: String, $channel: String!) {
	products(first: $first, after: $after, channel: $channel) {
		edges {
			node {
				id
				name
				slug
				description
				thumbnail {
					url
					alt
				}
				pricing {
					priceRange {
						start {` + priceFields + `
						}
					}
				}
			}
		}
		pageInfo {
			hasNextPage
			endCursor
		}
	}
}`

// ProductDetailQuery loads one product with its media and variants.
const ProductDetailQuery = `query ProductDetail($id: ID!, $channel: String!) {
	product(id: $id, channel: $channel) {
		id
		name
		slug
		description
		thumbnail {
			url
			alt
		}
		media {
			url
			alt
		}
		pricing {
			priceRange {
				start {` + priceFields + `
				}
			}
		}
		variants {
			id
			name
			pricing {
				price {` + priceFields + `
				}
			}
		}
	}
}`

// AccountError is an entry of a mutation payload's errors list.
type AccountError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// FirstMessage returns the first error's message, or "" when there is none.
func FirstMessage(errs []AccountError) string {
	if len(errs) == 0 {
		return ""
	}
	return errs[0].Message
}

// TokenCreateData is the data of LoginMutation.
type TokenCreateData struct {
	TokenCreate *struct {
		Token        string         `json:"token"`
		RefreshToken string         `json:"refreshToken"`
		User         *domain.User   `json:"user"`
		Errors       []AccountError `json:"errors"`
	} `json:"tokenCreate"`
}

// AccountRegisterData is the data of SignUpMutation.
type AccountRegisterData struct {
	AccountRegister *struct {
		User   *domain.User   `json:"user"`
		Errors []AccountError `json:"errors"`
	} `json:"accountRegister"`
}

// MeData is the data of CurrentUserQuery.
type MeData struct {
	Me *domain.User `json:"me"`
}

// TokenRefreshData is the data of RefreshTokenMutation.
type TokenRefreshData struct {
	TokenRefresh *struct {
		Token  string         `json:"token"`
		Errors []AccountError `json:"errors"`
	} `json:"tokenRefresh"`
}

// Money is a decimal amount as the backend reports it.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Image is a thumbnail or media entry.
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Product is the catalog shape shared by the list and detail queries.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description,omitempty"`
	Thumbnail   *Image  `json:"thumbnail,omitempty"`
	Media       []Image `json:"media,omitempty"`
	Pricing     *struct {
		PriceRange *struct {
			Start *struct {
				Gross *Money `json:"gross"`
			} `json:"start"`
		} `json:"priceRange"`
	} `json:"pricing,omitempty"`
	Variants []Variant `json:"variants,omitempty"`
}

// StartPrice returns the lowest gross price of the product, if reported.
func (p Product) StartPrice() (Money, bool) {
	if p.Pricing == nil || p.Pricing.PriceRange == nil || p.Pricing.PriceRange.Start == nil || p.Pricing.PriceRange.Start.Gross == nil {
		return Money{}, false
	}
	return *p.Pricing.PriceRange.Start.Gross, true
}

// Variant is a purchasable variant of a product.
type Variant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Pricing *struct {
		Price *struct {
			Gross *Money `json:"gross"`
		} `json:"price"`
	} `json:"pricing,omitempty"`
}

// Price returns the variant's gross price, if reported.
func (v Variant) Price() (Money, bool) {
	if v.Pricing == nil || v.Pricing.Price == nil || v.Pricing.Price.Gross == nil {
		return Money{}, false
	}
	return *v.Pricing.Price.Gross, true
}

// ProductListData is the data of ProductListQuery.
type ProductListData struct {
	Products *struct {
		Edges []struct {
			Node Product `json:"node"`
		} `json:"edges"`
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
	} `json:"products"`
}

// ProductDetailData is the data of ProductDetailQuery.
type ProductDetailData struct {
	Product *Product `json:"product"`
}
