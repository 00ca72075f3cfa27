package wallet

// BaseScale is the number of decimal places base-currency amounts are
// rounded to before they touch a balance. It matches numeric(20,4).
const BaseScale int32 = 4
