/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


package statement

const krungsriStatement = `GENERAL CARD SERVICES LIMITED
Krungsri Credit Card Statement
Statement Date 05/03/2026

15/02/26            01/03/26     CENTRAL WORLD BANGKOK 003/010     1,250.00
16/02/26            16/02/26     HOMEPRO RAMA 9 12,000.00 PLAN     1,000.00
20/02/26            20/02/26     ขอบคุณสำหรับยอดชำระ     -5,000.00
22/02/26            22/02/26     CENTRAL WORLD REFUND     ­250.00
SUBTOTAL     -2,750.00
`

const ktcStatement = `KRUNGTHAI CARD PUBLIC COMPANY LIMITED
บัตรกรุงไทย
05/03/2026 06/03/2026 GRAB FOOD BANGKOK 350.00
   THAILAND
15/03/2569 16/03/2569 NETFLIX.COM 419.00
10/03/2026 10/03/2026 PAYMENT RECEIVED -2,000.00
`

const scbCardStatement = `SCB CREDIT CARD
บัตรเครดิตไทยพาณิชย์
STATEMENT DATE 05/01/2026

28/12 29/12 LAZADA BANGKOK 899.00
03/01 NETFLIX.COM 419.00
04/01 04/01 PAYMENT-SCB THANK YOU -1,318.00
TOTAL 0.00
`

const scbSavingsStatement = `SIAM COMMERCIAL BANK PUBLIC COMPANY LIMITED
ธนาคารไทยพาณิชย์ จำกัด (มหาชน)

01/03/26 09:15 X1 ENET 5,000.00 25,000.00 DESC : รับโอนจาก KBANK X1234 SOMCHAI JAIDEE
02/03/26 12:40 X2 SIPI 120.00 24,880.00 DESC : พร้อมเพย์ ร้านกาแฟ
03/03/26 18:05 X2 ATM 2,000.00 22,880.00 DESC : ATM WITHDRAWAL
`

const kbankStatement = `KASIKORNBANK PUBLIC COMPANY LIMITED
ธนาคารกสิกรไทย

01-03-26 ยอดยกมา   10,000.00
01-03-26 10:15 โอนเงิน   500.00   9,500.00   K PLUS ไป SCB X5678 NAME SURNAME
02-03-26 11:00 รับโอนเงิน   1,000.00   10,500.00   K PLUS จาก BBL X1111 SOMSRI
03-03-26 ดอกเบี้ย   12.34   10,512.34
`

const ofxStatement = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20260315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>THB
<BANKACCTFROM>
<BANKID>004
<ACCTID>1234567890
<ACCTTYPE>SAVINGS
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20260301000000[0:GMT]
<DTEND>20260331000000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260305000000[0:GMT]
<TRNAMT>-250.5075
<FITID>2026030501
<NAME>STARBUCKS THONGLOR
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20260310093000[0:GMT]
<TRNAMT>45000.00
<FITID>2026031001
<NAME>PAYROLL
<MEMO>ACME CO LTD
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>44749.4925
<DTASOF>20260331000000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const genericOCRText = `some scanned bank
15/03/2026 COFFEE SHOP 85.00 DR
2026-03-16 SALARY ACME 30,000.00 CR
03/04/26 10:30 TRANSFER 1,500.00 2,000.00
no date here 12.00
`
