package sdk

// Minimal ERC20 fragment: allowance reads and bridge approvals
const erc20ABIJSON = `[
  {"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
  {"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// swapAndBridge entrypoint of the Allbridge pool contract
const bridgeABIJSON = `[
  {"inputs":[
    {"name":"token","type":"bytes32"},
    {"name":"amount","type":"uint256"},
    {"name":"recipient","type":"bytes32"},
    {"name":"destinationChainId","type":"uint8"},
    {"name":"receiveToken","type":"bytes32"},
    {"name":"nonce","type":"uint256"},
    {"name":"messenger","type":"uint8"},
    {"name":"feeTokenAmount","type":"uint256"},
    {"name":"minReceiveAmount","type":"uint256"}
  ],"name":"swapAndBridge","outputs":[],"stateMutability":"payable","type":"function"}
]`
