package storefront

const menuFragment = `
fragment MenuItem on MenuItem {
  id
  title
  type
  url
}`

const layoutQuery = `query layout($language: LanguageCode, $headerMenuHandle: String!, $footerMenuHandle: String!)
@inContext(language: $language) {
  shop {
    name
    description
    primaryDomain { url }
    brand { logo { image { url altText width height } } }
  }
  headerMenu: menu(handle: $headerMenuHandle) {
    id
    items { ...MenuItem items { ...MenuItem } }
  }
  footerMenu: menu(handle: $footerMenuHandle) {
    id
    items { ...MenuItem items { ...MenuItem } }
  }
}` + menuFragment

const countriesQuery = `query localization {
  localization {
    availableCountries {
      isoCode
      name
      currency { isoCode symbol }
    }
  }
}`

const cartFragment = `
fragment CartFragment on Cart {
  id
  checkoutUrl
  totalQuantity
  cost {
    subtotalAmount { amount currencyCode }
    totalAmount { amount currencyCode }
  }
  lines(first: 100) {
    nodes {
      id
      quantity
      merchandise {
        ... on ProductVariant {
          id
          title
          price { amount currencyCode }
          image { url altText width height }
          product { handle title }
        }
      }
    }
  }
}`

const cartQuery = `query cart($cartId: ID!) {
  cart(id: $cartId) { ...CartFragment }
}` + cartFragment

const cartCreateMutation = `mutation cartCreate($input: CartInput!) {
  cartCreate(input: $input) {
    cart { ...CartFragment }
    userErrors { field message }
  }
}` + cartFragment

const cartLinesAddMutation = `mutation cartLinesAdd($cartId: ID!, $lines: [CartLineInput!]!) {
  cartLinesAdd(cartId: $cartId, lines: $lines) {
    cart { ...CartFragment }
    userErrors { field message }
  }
}` + cartFragment

const productQuery = `query product($handle: String!, $language: LanguageCode)
@inContext(language: $language) {
  product(handle: $handle) {
    id
    handle
    title
    vendor
    description
    descriptionHtml
    seo { title description }
    images(first: 10) { nodes { url altText width height } }
    variants(first: 50) {
      nodes { id title sku availableForSale price { amount currencyCode } }
    }
  }
}`
