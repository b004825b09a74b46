package rye

// GraphQL documents for every Rye operation. Kept together so the request
// shapes can be reviewed against the Rye schema in one place.

const requestProductByURLMutation = `
mutation RequestAmazonProductByURL($input: RequestAmazonProductByURLInput!) {
    requestAmazonProductByURL(input: $input) {
        productId
    }
}
`

const productDetailsQuery = `
query ProductDetails($input: ProductByIDInput!) {
    product: productByID(input: $input) {
        title
        url
        isAvailable
        price { displayValue value currency }
        images { url }
        ... on AmazonProduct {
            ASIN
        }
    }
}
`

const createCartMutation = `
mutation CreateCart($input: CartCreateInput!) {
    createCart(input: $input) {
        cart {
            id
            cost {
                total { value displayValue currency }
                subtotal { value displayValue currency }
                shipping { value displayValue currency }
                isEstimated
            }
            stores {
                ... on AmazonStore {
                    cartLines {
                        quantity
                        product {
                            id
                            title
                        }
                    }
                    errors {
                        code
                        message
                    }
                }
            }
        }
        errors {
            code
            message
        }
    }
}
`

const getCartQuery = `
query GetCart($id: ID!) {
  getCart(id: $id) {
    cart {
      id
      cost {
        total { value currency }
        subtotal { value currency }
        shipping { value currency }
        tax { value currency }
      }
      stores {
        ... on AmazonStore {
          cartLines {
            quantity
            product {
              id
              title
              price { value currency }
            }
          }
        }
      }
    }
    errors { code message }
  }
}
`
